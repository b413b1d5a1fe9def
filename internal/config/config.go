package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSource is the tag written into every record's source field.
const DefaultSource = "claudecode"

// Config holds all configurable aitrack settings.
type Config struct {
	LogFile      string       `yaml:"log_file"`       // change log (JSONL)
	DebugLogFile string       `yaml:"debug_log_file"` // diagnostic log (plain text)
	Source       string       `yaml:"source"`
	Debug        *bool        `yaml:"debug"`
	Dedup        DedupConfig  `yaml:"dedup"`
	Hook         HookConfig   `yaml:"hook"`
	Export       ExportConfig `yaml:"export"`
}

// ExportConfig sets the defaults for "aitrack export".
type ExportConfig struct {
	Format    string `yaml:"format"` // "markdown" or "json"
	OutputDir string `yaml:"output_dir"`
}

// DedupConfig controls duplicate suppression.
type DedupConfig struct {
	// Persistent keeps the fingerprint window in a SQLite file so duplicates
	// are suppressed across hook invocations, not just within one.
	Persistent bool   `yaml:"persistent"`
	DBPath     string `yaml:"db_path"`
}

// HookConfig controls the hook process itself.
type HookConfig struct {
	// ReadTimeout bounds the wait for stdin to close. Zero waits forever.
	ReadTimeout Duration `yaml:"read_timeout"`
}

// Duration is a time.Duration that unmarshals from strings like "5s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// DebugEnabled reports whether the diagnostic log should be written.
func (c Config) DebugEnabled() bool {
	return c.Debug == nil || *c.Debug
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	dir := dataDir()
	return Config{
		LogFile:      filepath.Join(dir, "ai-changes.jsonl"),
		DebugLogFile: filepath.Join(dir, "ai-tracker-debug.log"),
		Source:       DefaultSource,
		Dedup: DedupConfig{
			DBPath: filepath.Join(dir, "ai-tracker-dedup.db"),
		},
		Export: ExportConfig{
			Format:    "markdown",
			OutputDir: ".",
		},
	}
}

// dataDir returns the directory the change log lives in. The nvim segment is
// kept so the editor-side plugin reading the log finds it unchanged.
func dataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.TempDir()
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "nvim")
}

// GlobalPath returns $XDG_CONFIG_HOME/aitrack/config.yaml.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "aitrack", "config.yaml"), nil
}

// LoadGlobal reads the global config file.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .aitrack.yaml in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".aitrack.yaml", false)
}

// Load reads global and project configs, merges them and applies
// environment overrides. On error the returned Config is the defaults with
// environment overrides applied, so callers that must not fail can use it.
func Load() (Config, error) {
	global, err := LoadGlobal()
	if err != nil {
		return ApplyEnv(Defaults()), err
	}
	project, err := LoadProject()
	if err != nil {
		return ApplyEnv(Defaults()), err
	}
	return ApplyEnv(Merge(global, project)), nil
}

// loadFile reads and parses a YAML config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	apply(&result, global)
	apply(&result, project)
	return result
}

func apply(dst *Config, src *Config) {
	if src == nil {
		return
	}
	if src.LogFile != "" {
		dst.LogFile = src.LogFile
	}
	if src.DebugLogFile != "" {
		dst.DebugLogFile = src.DebugLogFile
	}
	if src.Source != "" {
		dst.Source = src.Source
	}
	if src.Debug != nil {
		dst.Debug = src.Debug
	}
	if src.Dedup.Persistent {
		dst.Dedup.Persistent = true
	}
	if src.Dedup.DBPath != "" {
		dst.Dedup.DBPath = src.Dedup.DBPath
	}
	if src.Hook.ReadTimeout != 0 {
		dst.Hook.ReadTimeout = src.Hook.ReadTimeout
	}
	if src.Export.Format != "" {
		dst.Export.Format = src.Export.Format
	}
	if src.Export.OutputDir != "" {
		dst.Export.OutputDir = src.Export.OutputDir
	}
}

// ApplyEnv overrides log locations from AITRACK_LOG_FILE and
// AITRACK_DEBUG_LOG_FILE when set.
func ApplyEnv(cfg Config) Config {
	if v := os.Getenv("AITRACK_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("AITRACK_DEBUG_LOG_FILE"); v != "" {
		cfg.DebugLogFile = v
	}
	return cfg
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
