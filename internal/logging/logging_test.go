package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw    string
		want   zerolog.Level
		wantOK bool
	}{
		{"debug", zerolog.DebugLevel, true},
		{" WARN ", zerolog.WarnLevel, true},
		{"off", zerolog.Disabled, true},
		{"verbose", zerolog.NoLevel, false},
		{"", zerolog.NoLevel, false},
	}
	for _, tt := range tests {
		got, ok := parseLevel(tt.raw)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseLevel(%q) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestBuild_LevelFromEnv(t *testing.T) {
	var buf bytes.Buffer
	l := build(ProfileRuntime, &buf, env(map[string]string{EnvLogLevel: "error", EnvLogJSON: "1"}))

	l.Info().Msg("hidden")
	l.Error().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at error level: %s", out)
	}
	if !strings.Contains(out, `"message":"shown"`) {
		t.Errorf("error message missing from JSON output: %s", out)
	}
}

func TestBuild_TestProfileIsDebug(t *testing.T) {
	var buf bytes.Buffer
	l := build(ProfileTest, &buf, env(nil))
	l.Debug().Str("tool", "apriltag_detect").Msg("call")

	out := buf.String()
	if !strings.Contains(out, "call") || !strings.Contains(out, "tool=apriltag_detect") {
		t.Errorf("unexpected console output: %q", out)
	}
}

func TestLogger_BeforeConfigure(t *testing.T) {
	if Logger() == nil {
		t.Fatal("Logger() returned nil")
	}
}
