package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[Device]
Index = 1
LogLevel = 0
SlowMillis = 250

[[Networks]]
Name = "age"
Path = "/nets/AgeNet"
SHA256 = "ABCDEF"

[[Networks]]
Path = "/nets/GenderNet"

[Server]
Addr = ":9000"
`

func TestDecode(t *testing.T) {
	t.Setenv("MVNC_NETWORKS", "")

	cfg := Default()
	require.NoError(t, Decode(strings.NewReader(sample), &cfg))

	want := Config{
		Device: DeviceConfig{Index: 1, LogLevel: 0, SlowMillis: 250},
		Networks: []NetworkConfig{
			{Name: "age", Path: "/nets/AgeNet", SHA256: "ABCDEF"},
			{Name: "gendernet", Path: "/nets/GenderNet"},
		},
		Server: ServerConfig{Addr: ":9000"},
	}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 250*time.Millisecond, cfg.SlowThreshold())
	assert.Equal(t, map[string]string{"/nets/AgeNet": "abcdef"}, cfg.Checksums())

	n, ok := cfg.Network("GENDERNET")
	assert.True(t, ok)
	assert.Equal(t, "/nets/GenderNet", n.Path)

	_, ok = cfg.Network("emotion")
	assert.False(t, ok)
}

func TestDecodeUnknownField(t *testing.T) {
	cfg := Default()
	err := Decode(strings.NewReader("[Device]\nSpeed = 3\n"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Speed")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		err  string
	}{
		{"no path", Config{Networks: []NetworkConfig{{Name: "age"}}}, "no path"},
		{"duplicate", Config{Networks: []NetworkConfig{
			{Name: "age", Path: "/a"}, {Name: "AGE", Path: "/b"},
		}}, "more than once"},
		{"negative index", Config{Device: DeviceConfig{Index: -1}}, "negative"},
		{"ok", Config{Networks: []NetworkConfig{{Path: "/a/age"}}}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.err == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("MVNC_NETWORKS", "/env/age")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Len(t, cfg.Networks, 1)
	assert.Equal(t, "age", cfg.Networks[0].Name)

	file := filepath.Join(t.TempDir(), "mvnc.toml")
	require.NoError(t, os.WriteFile(file, []byte(sample), 0o644))

	cfg, err = Load(file)
	require.NoError(t, err)
	assert.Len(t, cfg.Networks, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Setenv("MVNC_NETWORKS", "")

	cfg := Default()
	require.NoError(t, Decode(strings.NewReader(sample), &cfg))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, cfg))

	again := Default()
	require.NoError(t, Decode(&buf, &again))

	if diff := cmp.Diff(cfg, again); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestNetworkName(t *testing.T) {
	assert.Equal(t, "agenet", NetworkName("/nets/AgeNet/"))
	assert.Equal(t, "gender", NetworkName("gender"))
}
