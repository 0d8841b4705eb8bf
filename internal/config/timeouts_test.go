package config

import (
	"testing"
	"time"
)

// TestHTTPTimeouts verifies server timeout constants
func TestHTTPTimeouts(t *testing.T) {
	tests := []struct {
		name     string
		got      time.Duration
		expected time.Duration
	}{
		{"HTTPRead", HTTPRead, 15 * time.Second},
		{"HTTPWrite", HTTPWrite, 30 * time.Second},
		{"HTTPIdle", HTTPIdle, 120 * time.Second},
		{"ImportProcessing", ImportProcessing, 20 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}
}

// TestTimeoutRelationships verifies that dependent timeouts stay ordered.
func TestTimeoutRelationships(t *testing.T) {
	if ImportProcessing >= HTTPWrite {
		t.Errorf("ImportProcessing (%v) should be less than HTTPWrite (%v)", ImportProcessing, HTTPWrite)
	}
	if BrowserPollInterval >= BrowserExtract {
		t.Errorf("BrowserPollInterval (%v) should be less than BrowserExtract (%v)", BrowserPollInterval, BrowserExtract)
	}
	if BrowserExtract >= BrowserWait {
		t.Errorf("BrowserExtract (%v) should be less than BrowserWait (%v)", BrowserExtract, BrowserWait)
	}
	if FetchRetryInitial >= FetchRequest {
		t.Errorf("FetchRetryInitial (%v) should be less than FetchRequest (%v)", FetchRetryInitial, FetchRequest)
	}
	if TelemetryFlush >= GracefulShutdown {
		t.Errorf("TelemetryFlush (%v) should be less than GracefulShutdown (%v)", TelemetryFlush, GracefulShutdown)
	}
}

// TestDatabaseTimeouts verifies database-related timeout constants
func TestDatabaseTimeouts(t *testing.T) {
	if DatabaseBusyTimeout != 30*time.Second {
		t.Errorf("DatabaseBusyTimeout = %v, want 30s", DatabaseBusyTimeout)
	}
	if DatabaseConnMaxLifetime != time.Hour {
		t.Errorf("DatabaseConnMaxLifetime = %v, want 1h", DatabaseConnMaxLifetime)
	}
}
