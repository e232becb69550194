package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTimezone       = "Europe/Berlin"
	DefaultProdID         = "-//csv2ics//EN"
	DefaultOutputExt      = ".ics"
	DefaultListen         = "127.0.0.1:8080"
	DefaultLogLevel       = "info"
	DefaultMaxUploadBytes = 8 << 20
)

// DefaultEncodings is the decoder's candidate order.
var DefaultEncodings = []string{"utf-8-sig", "utf-8", "windows-1251"}

// ColumnHints adds role-indicative substrings on top of the built-in ones.
type ColumnHints struct {
	Subject []string `yaml:"subject" json:"subject"`
	Start   []string `yaml:"start" json:"start"`
	End     []string `yaml:"end" json:"end"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the convert endpoint.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA zone attached to DTSTART/DTEND (e.g. "Europe/Berlin").
	// Empty disables TZID output and times are written with a "Z" suffix.
	Timezone string `yaml:"timezone" json:"timezone"`

	// ProdID is written as the calendar PRODID.
	ProdID string `yaml:"prod_id" json:"prod_id"`

	// Method, if set (e.g. "PUBLISH"), is written as METHOD in the header.
	Method string `yaml:"method" json:"method"`

	// Encodings are tried in order when decoding the input.
	Encodings []string `yaml:"encodings" json:"encodings"`

	// ExtraDateLayouts are Go time layouts tried after the built-in ones.
	ExtraDateLayouts []string `yaml:"extra_date_layouts" json:"extra_date_layouts"`

	// OutputExt replaces the input extension when no output path is given.
	OutputExt string `yaml:"output_ext" json:"output_ext"`

	Columns ColumnHints `yaml:"columns" json:"columns"`

	// Listen is the HTTP listen address for `serve`.
	Listen string `yaml:"listen" json:"listen"`

	// MaxUploadBytes caps request bodies on the convert endpoint.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" json:"max_upload_bytes"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:       DefaultTimezone,
		ProdID:         DefaultProdID,
		Encodings:      append([]string(nil), DefaultEncodings...),
		OutputExt:      DefaultOutputExt,
		Listen:         DefaultListen,
		MaxUploadBytes: DefaultMaxUploadBytes,
		LogLevel:       DefaultLogLevel,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
//
// Timezone is left alone: an explicit empty value means "no zone".
func (c *Config) Normalize() {
	if c.ProdID == "" {
		c.ProdID = DefaultProdID
	}
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	if len(c.Encodings) == 0 {
		c.Encodings = append([]string(nil), DefaultEncodings...)
	}
	if c.OutputExt == "" {
		c.OutputExt = DefaultOutputExt
	}
	if !strings.HasPrefix(c.OutputExt, ".") {
		c.OutputExt = "." + c.OutputExt
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If path is empty: return the defaults.
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// Environment overrides are applied last in every case.
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if cfg != nil {
		ApplyEnv(cfg)
	}
	return cfg, err
}

func load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// ApplyEnv loads an optional .env file from the working directory and
// applies CSV2ICS_* overrides.
func ApplyEnv(c *Config) {
	_ = godotenv.Load()

	if v, ok := os.LookupEnv("CSV2ICS_TIMEZONE"); ok {
		c.Timezone = strings.TrimSpace(v)
	}
	if v := os.Getenv("CSV2ICS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CSV2ICS_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("CSV2ICS_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.MaxUploadBytes = n
		}
	}
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".csv2ics-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
