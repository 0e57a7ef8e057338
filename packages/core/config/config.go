package config

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hostline/packages/hostq"
	hl "github.com/abdul-hamid-achik/hostline/packages/http"
	"github.com/abdul-hamid-achik/hostline/packages/logger"
)

const (
	DefaultTimeoutMs = hl.DefaultTimeoutMs
	DefaultWorkers   = 4

	EnvRateLimit = "HOSTLINE_RATE_LIMIT"
	EnvLogLevel  = "HOSTLINE_LOG_LEVEL"

	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

//go:embed schema.json
var schema []byte

// Config represents the hostline configuration
type Config struct {
	RateLimit float64 `yaml:"rateLimit"`
	Burst     int     `yaml:"burst"`
	// DefaultTimeout is in milliseconds; 0 disables the deadline.
	DefaultTimeout int           `yaml:"defaultTimeout"`
	Workers        int           `yaml:"workers"`
	Journal        string        `yaml:"journal"`
	Log            logger.Config `yaml:"log"`
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	"hostline.yaml",
	".hostline.yaml",
	"hostline.yml",
	".hostline.yml",
}

// Default returns the configuration used when no file is found
func Default() *Config {
	cfg := &Config{
		RateLimit:      hostq.DefaultRate,
		Burst:          hostq.DefaultBurst,
		DefaultTimeout: DefaultTimeoutMs,
		Workers:        DefaultWorkers,
	}
	cfg.Log.ApplyDefaults()
	return cfg
}

// Load loads configuration from path, or searches the current directory
// when path is empty. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path != "" {
		cfg, err = loadFile(path)
	} else {
		cfg, err = FindAndLoad(".")
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindAndLoad searches for a config file in the given directory
func FindAndLoad(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadFile(configPath)
		}
	}

	return Default(), nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse validates a YAML document against the schema and decodes it over
// the defaults
func Parse(data []byte) (*Config, error) {
	if err := validate(data); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Log.ApplyDefaults()

	return cfg, nil
}

func validate(data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(docJSON))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

// ApplyEnv applies environment overrides
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvRateLimit); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 {
			return fmt.Errorf("%s must be a positive number (got: %s)", EnvRateLimit, v)
		}
		c.RateLimit = r
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = strings.ToLower(v)
		if err := c.Log.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LoadEnvFile exports the variables of a dotenv file that are not already
// set in the process environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Hostq returns the registry settings
func (c *Config) Hostq() hostq.Config {
	return hostq.Config{Rate: c.RateLimit, Burst: c.Burst}
}

// Timeout returns the default request deadline
func (c *Config) Timeout() time.Duration {
	if c.DefaultTimeout <= 0 {
		return hl.MaxTimeoutMs * time.Millisecond
	}
	return time.Duration(c.DefaultTimeout) * time.Millisecond
}

// Watch reloads path whenever it changes and passes the result to onChange.
// Bursts of events are debounced. It blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config, error)) error {
	if path == "" {
		return errors.New("no config file to watch")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				debounce = time.After(WatchDebounceDelay)
			}

		case <-debounce:
			debounce = nil
			onChange(Load(abs))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onChange(nil, fmt.Errorf("watch error: %w", err))
		}
	}
}
