// Package config loads the host configuration of the mvnclite tools from an
// optional TOML file layered over the environment.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/naoina/toml"

	"github.com/swdee/go-mvnclite/internal/envconfig"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// DeviceConfig selects and tunes the accelerator
type DeviceConfig struct {
	Index    int
	LogLevel int
	// SlowMillis is the inference time above which an inference is flagged
	// abnormally slow
	SlowMillis int
}

// NetworkConfig names a network directory
type NetworkConfig struct {
	Name string
	Path string
	// SHA256 is the known good digest of the graph file
	SHA256 string `toml:",omitempty"`
}

// ServerConfig configures the HTTP classification service
type ServerConfig struct {
	Addr string
}

// Config is the host configuration
type Config struct {
	Device   DeviceConfig
	Networks []NetworkConfig
	Server   ServerConfig
}

// DefaultAddr is the listen address of the classification service
const DefaultAddr = "127.0.0.1:8765"

// Default returns the configuration given by the environment
func Default() Config {

	cfg := Config{
		Device: DeviceConfig{
			Index:      envconfig.DeviceIndex(),
			LogLevel:   envconfig.DeviceLogLevel(),
			SlowMillis: int(envconfig.SlowThreshold() / time.Millisecond),
		},
		Server: ServerConfig{
			Addr: DefaultAddr,
		},
	}

	for _, p := range envconfig.Networks() {
		cfg.Networks = append(cfg.Networks, NetworkConfig{
			Name: NetworkName(p),
			Path: p,
		})
	}

	return cfg
}

// Load reads the TOML file over the defaults.  Networks listed in the file
// replace those from the environment.
func Load(file string) (Config, error) {

	cfg := Default()

	if file == "" {
		return cfg, nil
	}

	f, err := os.Open(file)

	if err != nil {
		return cfg, err
	}

	defer f.Close()

	envNetworks := cfg.Networks
	cfg.Networks = nil

	if err := Decode(f, &cfg); err != nil {
		return cfg, fmt.Errorf("%s, %w", file, err)
	}

	if len(cfg.Networks) == 0 {
		cfg.Networks = envNetworks
	}

	return cfg, nil
}

// Decode reads TOML from r into cfg and validates the result
func Decode(r io.Reader, cfg *Config) error {

	err := tomlSettings.NewDecoder(bufio.NewReader(r)).Decode(cfg)

	if err != nil {
		return err
	}

	return cfg.Validate()
}

// Encode writes cfg as TOML
func Encode(w io.Writer, cfg Config) error {

	out, err := tomlSettings.Marshal(&cfg)

	if err != nil {
		return err
	}

	_, err = w.Write(out)
	return err
}

// Validate checks the network list for missing paths and duplicate names.
// Networks without a name are named after their directory.
func (c *Config) Validate() error {

	seen := make(map[string]bool)

	for i := range c.Networks {
		n := &c.Networks[i]

		if n.Path == "" {
			return fmt.Errorf("network %d has no path", i)
		}

		if n.Name == "" {
			n.Name = NetworkName(n.Path)
		}

		key := strings.ToLower(n.Name)

		if seen[key] {
			return fmt.Errorf("network name %q is used more than once", n.Name)
		}

		seen[key] = true
	}

	if c.Device.Index < 0 {
		return errors.New("device index must not be negative")
	}

	return nil
}

// Network returns the network with the given name, compared case
// insensitively
func (c Config) Network(name string) (NetworkConfig, bool) {
	for _, n := range c.Networks {
		if strings.EqualFold(n.Name, name) {
			return n, true
		}
	}
	return NetworkConfig{}, false
}

// Checksums returns the known graph digests keyed by network path
func (c Config) Checksums() map[string]string {

	out := make(map[string]string)

	for _, n := range c.Networks {
		if n.SHA256 != "" {
			out[n.Path] = strings.ToLower(n.SHA256)
		}
	}

	return out
}

// SlowThreshold returns the slow inference threshold as a duration
func (c Config) SlowThreshold() time.Duration {
	return time.Duration(c.Device.SlowMillis) * time.Millisecond
}

// NetworkName derives a network name from its directory, for example
// "/nets/AgeNet" becomes "agenet"
func NetworkName(path string) string {
	name := filepath.Base(filepath.Clean(path))
	return strings.ToLower(strings.TrimFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
}
