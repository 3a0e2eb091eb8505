package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/muurk/serlink/internal/config"
	"github.com/muurk/serlink/internal/server"
	"github.com/muurk/serlink/internal/settings"
)

func fastClient(url string) *Client {
	c := NewClient(url)
	c.SetRetry(3, time.Millisecond)
	c.MaxRetryDelay = 5 * time.Millisecond
	return c
}

func fastVerify() *VerificationOptions {
	return &VerificationOptions{MaxRetries: 3, InitialDelay: 0, RetryDelay: time.Millisecond}
}

func newBridge(t *testing.T) (*httptest.Server, *config.Store) {
	t.Helper()
	store, err := config.Open(filepath.Join(t.TempDir(), "settings.yaml"))
	if err != nil {
		t.Fatalf("config.Open() error = %v", err)
	}
	srv := server.New(&server.Config{MaxPorts: 4, Reboot: func() {}}, store, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func TestNewClient_AddsScheme(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"192.168.1.50:8080", "http://192.168.1.50:8080"},
		{"http://bridge.local/", "http://bridge.local"},
		{"https://bridge.local", "https://bridge.local"},
	}
	for _, tt := range tests {
		if got := NewClient(tt.in).BaseURL; got != tt.want {
			t.Errorf("NewClient(%q).BaseURL = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGetAndPutAgainstServer(t *testing.T) {
	ts, store := newBridge(t)
	c := fastClient(ts.URL)
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	got, err := c.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if diff := cmp.Diff(store.Snapshot(), got); diff != "" {
		t.Errorf("GetSettings() mismatch (-want +got):\n%s", diff)
	}

	got.Ports[3].BaudRate = settings.Baud1200
	res, err := c.PutSettings(ctx, got)
	if err != nil {
		t.Fatalf("PutSettings() error = %v", err)
	}
	if diff := cmp.Diff(got, res.Settings); diff != "" {
		t.Errorf("PutSettings() mismatch (-want +got):\n%s", diff)
	}
}

func TestPutSettings_Rejected(t *testing.T) {
	ts, _ := newBridge(t)
	c := fastClient(ts.URL)

	bad := settings.Default(1)
	bad.Ports[0].BaudRate = 300

	_, err := c.PutSettings(context.Background(), bad)
	if !IsRejected(err) {
		t.Fatalf("PutSettings() error = %v, want rejected", err)
	}
	if IsRetryable(err) {
		t.Errorf("rejected error should not be retryable")
	}
}

func TestUpdateAndVerify(t *testing.T) {
	ts, _ := newBridge(t)
	c := fastClient(ts.URL)

	want := settings.Default(2)
	want.Gateway = "10.0.0.1"

	result := c.UpdateAndVerify(context.Background(), want, fastVerify())
	if !result.Success {
		t.Fatalf("UpdateAndVerify() failed: %v", result.Error)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("Warnings = %v, want gateway subnet warning", result.Warnings)
	}
}

func TestVerify_Mismatch(t *testing.T) {
	stored := settings.Default(2)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(stored)
	}))
	defer ts.Close()

	want := stored.Clone()
	want.Ports[1].FlowControl = settings.FlowXONXOFF

	result := fastClient(ts.URL).Verify(context.Background(), want, fastVerify())
	if result.Success {
		t.Fatal("Verify() succeeded, want mismatch")
	}
	if result.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", result.Attempts)
	}
	if diff := cmp.Diff([]string{"fl_1"}, result.Mismatches); diff != "" {
		t.Errorf("Mismatches (-want +got):\n%s", diff)
	}
	if !IsMismatch(result.Error) {
		t.Errorf("Error = %v, want mismatch", result.Error)
	}
}

func TestRetry_ServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(settings.Default(1))
	}))
	defer ts.Close()

	snap, err := fastClient(ts.URL).GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if len(snap.Ports) != 1 {
		t.Errorf("ports = %d, want 1", len(snap.Ports))
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestRetry_GivesUp(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	err := fastClient(ts.URL).Ping(context.Background())
	if err == nil {
		t.Fatal("Ping() error = nil, want error")
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("calls = %d, want 4 (1 + 3 retries)", got)
	}
}

func TestRetry_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	if _, err := fastClient(ts.URL).GetSettings(context.Background()); err == nil {
		t.Fatal("GetSettings() error = nil, want error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := fastClient(url)
	c.SetRetry(0, 0)
	err := c.Ping(context.Background())
	if !IsNetworkError(err) {
		t.Fatalf("Ping() error = %v, want network error", err)
	}
	if !IsRetryable(err) {
		t.Errorf("connection refused should be retryable")
	}
	if hint := GetTroubleshootingHint(err); hint == "" {
		t.Errorf("GetTroubleshootingHint() returned empty string")
	}
}

func TestReboot(t *testing.T) {
	ts, _ := newBridge(t)
	if err := fastClient(ts.URL).Reboot(context.Background()); err != nil {
		t.Errorf("Reboot() error = %v", err)
	}
}

func TestWatch(t *testing.T) {
	ts, store := newBridge(t)
	c := fastClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	events := make(chan Event, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, func(ev Event) error {
			events <- ev
			cancel()
			return nil
		})
	}()

	// Keep publishing until the stream picks one up.
	ips := []string{"192.168.1.51", "192.168.1.52", "192.168.1.53", "192.168.1.54"}
	var ev Event
	for i := 0; ; i++ {
		ip := ips[i%len(ips)]
		if _, _, err := store.Update("test", 4, func(s *settings.Snapshot) error {
			s.IP = ip
			return nil
		}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		select {
		case ev = <-events:
		case <-time.After(50 * time.Millisecond):
			if ctx.Err() != nil {
				t.Fatal("no event received")
			}
			continue
		}
		break
	}

	if ev.Type != "settings_updated" {
		t.Errorf("event type = %q, want settings_updated", ev.Type)
	}
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}

func TestClassifyNetworkError_Nil(t *testing.T) {
	if ClassifyNetworkError("x", nil) != nil {
		t.Error("ClassifyNetworkError(nil) should return nil")
	}
}

func TestErrorTypeString(t *testing.T) {
	if got := ErrTypeRejected.String(); got != "Settings Rejected" {
		t.Errorf("String() = %v, want Settings Rejected", got)
	}
	if got := ErrorType(99).String(); got != "ErrorType(99)" {
		t.Errorf("String() = %v, want ErrorType(99)", got)
	}
}
