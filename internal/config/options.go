package config

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pairomaniac/capture-stream/internal/logging"
)

// AppName is the directory name used under the user's config dir.
const AppName = "capture-stream"

// Options holds the tool's runtime settings. The root command takes no
// flags, so everything comes from config.toml and CAPTURE_STREAM_* env vars.
type Options struct {
	Config string

	// Logging settings
	LoggingLevel      string `default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingDevices    string `toml:"logging.devices" env:"LOGGING_DEVICES"`
	LoggingCapability string `toml:"logging.capability" env:"LOGGING_CAPABILITY"`
	LoggingRules      string `toml:"logging.rules" env:"LOGGING_RULES"`
	LoggingNegotiate  string `toml:"logging.negotiate" env:"LOGGING_NEGOTIATE"`
	LoggingPlayer     string `toml:"logging.player" env:"LOGGING_PLAYER"`
	LoggingPrompt     string `toml:"logging.prompt" env:"LOGGING_PROMPT"`
	LoggingHotplug    string `toml:"logging.hotplug" env:"LOGGING_HOTPLUG"`

	// External tools
	PlayerBinary string `default:"vlc" toml:"player.binary" env:"PLAYER_BINARY"`
	PromptBinary string `default:"zenity" toml:"prompt.binary" env:"PROMPT_BINARY"`

	// File locations; empty means the per-user default
	PreferencesFile string `toml:"paths.preferences" env:"PREFERENCES_FILE"`
	KWinRulesFile   string `toml:"paths.kwin_rules" env:"KWIN_RULES_FILE"`
}

// Load builds Options from the default config file and the environment.
func Load() (*Options, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	opts := &Options{Config: filepath.Join(dir, "config.toml")}
	if err := LoadConfig(opts, nil); err != nil {
		return nil, err
	}

	if opts.PreferencesFile == "" {
		opts.PreferencesFile = filepath.Join(dir, "preferences.toml")
	} else if opts.PreferencesFile, err = homedir.Expand(opts.PreferencesFile); err != nil {
		return nil, err
	}

	if opts.KWinRulesFile == "" {
		base, baseErr := UserConfigHome()
		if baseErr != nil {
			return nil, baseErr
		}
		opts.KWinRulesFile = filepath.Join(base, "kwinrulesrc")
	} else if opts.KWinRulesFile, err = homedir.Expand(opts.KWinRulesFile); err != nil {
		return nil, err
	}

	return opts, nil
}

// LoggingConfig converts the logging fields into a logging.Config.
func (o *Options) LoggingConfig() logging.Config {
	modules := make(map[string]string)
	for module, level := range map[string]string{
		"devices":    o.LoggingDevices,
		"capability": o.LoggingCapability,
		"rules":      o.LoggingRules,
		"negotiate":  o.LoggingNegotiate,
		"player":     o.LoggingPlayer,
		"prompt":     o.LoggingPrompt,
		"hotplug":    o.LoggingHotplug,
	} {
		if level != "" {
			modules[module] = level
		}
	}
	return logging.Config{
		Level:   o.LoggingLevel,
		Format:  o.LoggingFormat,
		Modules: modules,
	}
}

// UserConfigHome returns $XDG_CONFIG_HOME, falling back to ~/.config.
func UserConfigHome() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config"), nil
}

// ConfigDir returns the tool's own config directory.
func ConfigDir() (string, error) {
	base, err := UserConfigHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppName), nil
}

// DataHome returns $XDG_DATA_HOME, falling back to ~/.local/share.
func DataHome() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share"), nil
}
