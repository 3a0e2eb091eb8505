package client

import (
	"context"
	"fmt"

	"github.com/muurk/serlink/internal/settings"
)

// SafeUpdateResult contains the outcome of SafeUpdate.
type SafeUpdateResult struct {
	// Success indicates whether the new settings were applied and verified
	Success bool

	// Previous is the snapshot read before the update
	Previous settings.Snapshot

	// UpdateResult is the verification result of the update
	UpdateResult *VerificationResult

	// RollbackAttempted is set when the update failed after Previous was read
	RollbackAttempted bool

	// RollbackSucceeded reports whether Previous was restored and verified
	RollbackSucceeded bool

	// RollbackResult is the verification result of the rollback, if any
	RollbackResult *VerificationResult

	// Error describes the failure, including the rollback outcome
	Error error
}

// SafeUpdate reads the current settings, applies want and verifies it. If
// verification fails the previous settings are put back.
//
// A rejected update (validation failure on the bridge) is not rolled back
// because the bridge never stored it.
func (c *Client) SafeUpdate(ctx context.Context, want settings.Snapshot, opts *VerificationOptions) *SafeUpdateResult {
	result := &SafeUpdateResult{}

	previous, err := c.GetSettings(ctx)
	if err != nil {
		result.Error = fmt.Errorf("failed to read settings before update: %w", err)
		return result
	}
	result.Previous = previous

	update := c.UpdateAndVerify(ctx, want, opts)
	result.UpdateResult = update
	if update.Success {
		result.Success = true
		return result
	}
	if IsRejected(update.Error) {
		result.Error = update.Error
		return result
	}

	result.RollbackAttempted = true
	rollback := c.UpdateAndVerify(ctx, previous, opts)
	result.RollbackResult = rollback

	if rollback.Success {
		result.RollbackSucceeded = true
		result.Error = fmt.Errorf("update failed (%w), previous settings restored", update.Error)
	} else {
		result.Error = fmt.Errorf("update failed (%w) and rollback failed: %w", update.Error, rollback.Error)
	}
	return result
}
