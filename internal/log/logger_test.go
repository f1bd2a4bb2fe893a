package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogger_PrependsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf, Component: ComponentLedger})

	logger.WithOwner("o-1").Info("Opened", FieldCount, 3)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if line[FieldComponent] != ComponentLedger {
		t.Errorf("component = %v, want %s", line[FieldComponent], ComponentLedger)
	}
	if line[FieldOwnerID] != "o-1" {
		t.Errorf("owner_id = %v, want o-1", line[FieldOwnerID])
	}
	if line[FieldCount] != float64(3) {
		t.Errorf("count = %v, want 3", line[FieldCount])
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got == nil || got.Component() != "unknown" {
		t.Fatalf("fallback logger = %+v, want component unknown", got)
	}

	logger := Discard().WithComponent(ComponentHTTP)
	ctx := WithContext(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Fatal("FromContext did not return the stored logger")
	}
}

func TestLogHTTPEnd_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{503, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			sl := NewStructuredLogger(New(Config{Format: "text", Output: &buf}))
			r := httptest.NewRequest("POST", "/api/transactions?x=1", nil)

			sl.LogHTTPEnd(context.Background(), r, tt.status, 12, "10.0.0.1")

			out := buf.String()
			if !strings.Contains(out, "level="+tt.level) {
				t.Fatalf("output %q missing level=%s", out, tt.level)
			}
			if !strings.Contains(out, "path=/api/transactions") || !strings.Contains(out, "client_ip=10.0.0.1") {
				t.Fatalf("output %q missing request fields", out)
			}
		})
	}
}
