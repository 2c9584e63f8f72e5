// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Debug().Str("index", "products").Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("expected output to contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, `"level":"debug"`) {
		t.Errorf("expected output to contain level, got: %s", output)
	}
	if !strings.Contains(output, `"index":"products"`) {
		t.Errorf("expected output to contain field, got: %s", output)
	}
	if !strings.Contains(output, `"service":"dynarank"`) {
		t.Errorf("expected output to contain service, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithTarget(ctx, "products,offers")

	Ctx(ctx).Info().Msg("reranked")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-1"`, `"target":"products,offers"`, `"message":"reranked"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Ctx output missing %s: %s", want, out)
		}
	}
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("RequestIDFromContext(empty) = %q, want empty", got)
	}
	if got := TargetFromContext(ctx); got != "" {
		t.Errorf("TargetFromContext(empty) = %q, want empty", got)
	}

	id := GenerateRequestID()
	if len(id) != 36 {
		t.Errorf("GenerateRequestID() = %q, want a UUID", id)
	}
	if got := RequestIDFromContext(ContextWithRequestID(ctx, id)); got != id {
		t.Errorf("RequestIDFromContext = %q, want %q", got, id)
	}
}

func TestLogSecurityEvent(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))

	LogSecurityEvent(ctx, &SecurityEvent{
		Event:     "login",
		Username:  "eve\nINFO forged",
		IPAddress: "10.0.0.1",
		Success:   false,
		Error:     "invalid credentials",
	})

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("failed event should log at warn: %s", out)
	}
	if !strings.Contains(out, `"username":"eveINFO forged"`) {
		t.Errorf("username not sanitized: %s", out)
	}
}

func TestSanitizeValue(t *testing.T) {
	long := strings.Repeat("a", 100)
	if got := SanitizeValue(long); len(got) != maxLoggedValue+3 {
		t.Errorf("SanitizeValue(long) length = %d, want %d", len(got), maxLoggedValue+3)
	}
	if got := SanitizeValue("a\tb\x00c"); got != "abc" {
		t.Errorf("SanitizeValue = %q, want abc", got)
	}
}
