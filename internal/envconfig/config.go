// Package envconfig reads the host settings of the mvnclite tools from the
// environment.
package envconfig

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LogLevel returns the host log level configured via MVNC_DEBUG.
// Values: 0/false = INFO (default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("MVNC_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// DeviceLogLevel is the verbosity of the device runtime, MVNC_LOG_LEVEL
var DeviceLogLevel = Int("MVNC_LOG_LEVEL", 2)

// DeviceIndex selects the attached device to open, MVNC_DEVICE_INDEX
var DeviceIndex = Int("MVNC_DEVICE_INDEX", 0)

// SlowThreshold returns the inference time above which an inference is
// flagged as abnormally slow, configured via MVNC_SLOW_MS in milliseconds or
// as a duration string.  Default: 100ms
func SlowThreshold() time.Duration {
	threshold := 100 * time.Millisecond
	if s := Var("MVNC_SLOW_MS"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			threshold = d
		} else if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			threshold = time.Duration(n) * time.Millisecond
		} else {
			slog.Warn("invalid environment variable, using default", "key", "MVNC_SLOW_MS",
				"value", s, "default", threshold)
		}
	}

	return threshold
}

// Networks returns the network directories configured via MVNC_NETWORKS, a
// list separated by the OS path list separator.  Empty when unset.
func Networks() []string {
	raw := Var("MVNC_NETWORKS")
	if raw == "" {
		return nil
	}

	var out []string
	for _, p := range filepath.SplitList(raw) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// ConfigFile returns the path of the optional TOML config file, MVNC_CONFIG
var ConfigFile = String("MVNC_CONFIG")

// Int returns a function reading an int with a default value
func Int(key string, defaultValue int) func() int {
	return func() int {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseInt(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return int(n)
			}
		}
		return defaultValue
	}
}

// String returns a function reading a string
func String(key string) func() string {
	return func() string {
		return Var(key)
	}
}

// EnvVar describes a supported environment variable
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns the supported environment variables with their current
// values
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"MVNC_DEBUG":        {"MVNC_DEBUG", LogLevel(), "Show additional debug information (e.g. MVNC_DEBUG=1)"},
		"MVNC_LOG_LEVEL":    {"MVNC_LOG_LEVEL", DeviceLogLevel(), "Verbosity of the device runtime"},
		"MVNC_DEVICE_INDEX": {"MVNC_DEVICE_INDEX", DeviceIndex(), "Index of the attached device to open"},
		"MVNC_SLOW_MS":      {"MVNC_SLOW_MS", SlowThreshold(), "Inference time flagged as abnormally slow"},
		"MVNC_NETWORKS":     {"MVNC_NETWORKS", Networks(), "Network directories to classify with"},
		"MVNC_CONFIG":       {"MVNC_CONFIG", ConfigFile(), "Path of the TOML config file"},
	}
}

// Var returns an environment variable stripped of surrounding quotes and
// whitespace
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
