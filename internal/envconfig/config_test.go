package envconfig

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"0":     slog.LevelInfo,
		"1":     slog.LevelDebug,
		"true":  slog.LevelDebug,
		"2":     slog.Level(-8),
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("MVNC_DEBUG", k)
			if i := LogLevel(); i != v {
				t.Errorf("%s: expected %v, got %v", k, v, i)
			}
		})
	}
}

func TestSlowThreshold(t *testing.T) {
	cases := map[string]time.Duration{
		"":      100 * time.Millisecond,
		"250":   250 * time.Millisecond,
		"1s":    time.Second,
		"-5":    100 * time.Millisecond,
		"bogus": 100 * time.Millisecond,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("MVNC_SLOW_MS", k)
			if d := SlowThreshold(); d != v {
				t.Errorf("%s: expected %s, got %s", k, v, d)
			}
		})
	}
}

func TestInt(t *testing.T) {
	t.Setenv("MVNC_DEVICE_INDEX", "3")
	if got := DeviceIndex(); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}

	t.Setenv("MVNC_DEVICE_INDEX", "x")
	if got := DeviceIndex(); got != 0 {
		t.Errorf("expected default 0, got %d", got)
	}

	t.Setenv("MVNC_LOG_LEVEL", "")
	if got := DeviceLogLevel(); got != 2 {
		t.Errorf("expected default 2, got %d", got)
	}
}

func TestNetworks(t *testing.T) {
	t.Setenv("MVNC_NETWORKS", "")
	if got := Networks(); got != nil {
		t.Errorf("expected nil, got %v", got)
	}

	t.Setenv("MVNC_NETWORKS", "'/nets/age: /nets/gender:'")
	if diff := cmp.Diff([]string{"/nets/age", "/nets/gender"}, Networks()); diff != "" {
		t.Errorf("networks mismatch (-want +got):\n%s", diff)
	}
}

func TestVar(t *testing.T) {
	t.Setenv("MVNC_CONFIG", ` "/etc/mvnc.toml" `)
	if got := ConfigFile(); got != "/etc/mvnc.toml" {
		t.Errorf("expected unquoted path, got %q", got)
	}
}
