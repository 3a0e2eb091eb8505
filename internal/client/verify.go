package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/muurk/serlink/internal/settings"
)

// VerificationOptions configures how configuration verification behaves
type VerificationOptions struct {
	// MaxRetries is the number of read-backs after the first
	// Default: 3
	MaxRetries int

	// InitialDelay is the delay before the first read-back
	// Default: 200ms
	InitialDelay time.Duration

	// RetryDelay is the delay between read-backs
	// Default: 500ms
	RetryDelay time.Duration
}

// DefaultVerificationOptions returns sensible defaults for verification
func DefaultVerificationOptions() *VerificationOptions {
	return &VerificationOptions{
		MaxRetries:   3,
		InitialDelay: 200 * time.Millisecond,
		RetryDelay:   500 * time.Millisecond,
	}
}

// VerificationResult contains the results of a configuration verification
type VerificationResult struct {
	// Success indicates whether verification succeeded
	Success bool

	// Attempts is the number of read-backs made
	Attempts int

	// Actual is the last snapshot read from the bridge
	Actual settings.Snapshot

	// Warnings are the non-fatal validation messages returned by the update
	Warnings []string

	// Mismatches lists the fields that differ, e.g. "bd_1"
	Mismatches []string

	// Error is any error that occurred during verification
	Error error
}

// UpdateAndVerify sends want to the bridge and reads it back until it
// matches or the retries run out.
func (c *Client) UpdateAndVerify(ctx context.Context, want settings.Snapshot, opts *VerificationOptions) *VerificationResult {
	if opts == nil {
		opts = DefaultVerificationOptions()
	}

	update, err := c.PutSettings(ctx, want)
	if err != nil {
		return &VerificationResult{Error: fmt.Errorf("update failed: %w", err)}
	}

	result := c.Verify(ctx, want, opts)
	result.Warnings = update.Warnings
	return result
}

// Verify reads the bridge's settings until they equal want.
func (c *Client) Verify(ctx context.Context, want settings.Snapshot, opts *VerificationOptions) *VerificationResult {
	if opts == nil {
		opts = DefaultVerificationOptions()
	}

	result := &VerificationResult{}

	if err := sleep(ctx, opts.InitialDelay); err != nil {
		result.Error = err
		return result
	}

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, opts.RetryDelay); err != nil {
				result.Error = err
				return result
			}
		}
		result.Attempts++

		actual, err := c.GetSettings(ctx)
		if err != nil {
			result.Error = fmt.Errorf("attempt %d: failed to read settings: %w", attempt+1, err)
			continue
		}
		result.Actual = actual

		result.Mismatches = settings.ChangedFields(want, actual)
		if len(result.Mismatches) == 0 {
			result.Success = true
			result.Error = nil
			return result
		}

		result.Error = &RemoteError{
			Type:    ErrTypeMismatch,
			Message: fmt.Sprintf("verification failed after %d attempt(s)", result.Attempts),
			Details: []string{formatMismatches(result.Mismatches)},
		}
	}

	return result
}

// formatMismatches creates a human-readable summary of mismatches
func formatMismatches(mismatches []string) string {
	switch len(mismatches) {
	case 0:
		return "none"
	case 1:
		return mismatches[0] + " differs"
	}
	return fmt.Sprintf("%d fields differ: %s", len(mismatches), strings.Join(mismatches, ", "))
}
