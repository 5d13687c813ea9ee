package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string

	StringField  string   `default:"fallback" toml:"test.string_field" env:"STRING_FIELD"`
	BoolField    bool     `toml:"test.bool_field" env:"BOOL_FIELD"`
	IntField     int      `default:"7" toml:"test.int_field" env:"INT_FIELD"`
	FloatField   float64  `toml:"test.float_field" env:"FLOAT_FIELD"`
	SliceField   []string `toml:"test.slice_field" env:"SLICE_FIELD"`
	NestedString string   `toml:"nested.deep.value" env:"NESTED_VALUE"`
}

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "missing.toml")}

	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.StringField != "fallback" {
		t.Errorf("StringField = %q, want default %q", opts.StringField, "fallback")
	}
	if opts.IntField != 7 {
		t.Errorf("IntField = %d, want default 7", opts.IntField)
	}
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeTOML(t, `
[test]
string_field = "hello world"
bool_field = true
int_field = 42
float_field = 1.5
slice_field = ["item1", "item2"]

[nested.deep]
value = "nested value"
`)
	opts := &testOptions{Config: path}

	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.StringField != "hello world" {
		t.Errorf("StringField = %q, want %q", opts.StringField, "hello world")
	}
	if !opts.BoolField {
		t.Error("BoolField = false, want true")
	}
	if opts.IntField != 42 {
		t.Errorf("IntField = %d, want 42", opts.IntField)
	}
	if opts.FloatField != 1.5 {
		t.Errorf("FloatField = %v, want 1.5", opts.FloatField)
	}
	if want := []string{"item1", "item2"}; !reflect.DeepEqual(opts.SliceField, want) {
		t.Errorf("SliceField = %v, want %v", opts.SliceField, want)
	}
	if opts.NestedString != "nested value" {
		t.Errorf("NestedString = %q, want %q", opts.NestedString, "nested value")
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	path := writeTOML(t, "[test]\nstring_field = \"from file\"\nint_field = 1\n")
	t.Setenv(EnvPrefix+"STRING_FIELD", "from env")
	t.Setenv(EnvPrefix+"SLICE_FIELD", "a, b ,c")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.StringField != "from env" {
		t.Errorf("StringField = %q, want env value", opts.StringField)
	}
	if opts.IntField != 1 {
		t.Errorf("IntField = %d, want 1 from file", opts.IntField)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(opts.SliceField, want) {
		t.Errorf("SliceField = %v, want %v", opts.SliceField, want)
	}
}

func TestLoadConfigChangedFlagWins(t *testing.T) {
	path := writeTOML(t, "[test]\nstring_field = \"from file\"\n")
	t.Setenv(EnvPrefix+"STRING_FIELD", "from env")

	opts := &testOptions{Config: path}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&opts.StringField, "string-field", "", "")
	if err := cmd.Flags().Set("string-field", "from flag"); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.StringField != "from flag" {
		t.Errorf("StringField = %q, want flag value", opts.StringField)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := writeTOML(t, "[test\nbroken = ")
	opts := &testOptions{Config: path}

	if err := LoadConfig(opts, nil); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"level1": map[string]any{
			"level2": map[string]any{"value": "nested_value"},
			"simple": "simple_value",
		},
		"root": "root_value",
	}

	tests := []struct {
		path     string
		expected any
	}{
		{"root", "root_value"},
		{"level1.simple", "simple_value"},
		{"level1.level2.value", "nested_value"},
		{"nonexistent", nil},
		{"root.child", nil},
		{"level1.nonexistent", nil},
	}

	for _, tt := range tests {
		if result := getNestedValue(data, tt.path); result != tt.expected {
			t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, result, tt.expected)
		}
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Config":          "config",
		"LoggingLevel":    "logging-level",
		"PreferencesFile": "preferences-file",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOptionsLoad(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	t.Setenv(EnvPrefix+"LOGGING_RULES", "debug")

	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "[player]\nbinary = \"/opt/vlc/bin/vlc\"\n\n[logging]\nformat = \"json\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if opts.PlayerBinary != "/opt/vlc/bin/vlc" {
		t.Errorf("PlayerBinary = %q", opts.PlayerBinary)
	}
	if opts.PromptBinary != "zenity" {
		t.Errorf("PromptBinary = %q, want default zenity", opts.PromptBinary)
	}
	if opts.PreferencesFile != filepath.Join(dir, "preferences.toml") {
		t.Errorf("PreferencesFile = %q", opts.PreferencesFile)
	}
	if opts.KWinRulesFile != filepath.Join(base, "kwinrulesrc") {
		t.Errorf("KWinRulesFile = %q", opts.KWinRulesFile)
	}

	logCfg := opts.LoggingConfig()
	if logCfg.Format != "json" || logCfg.Level != "info" {
		t.Errorf("logging config = %+v", logCfg)
	}
	if logCfg.Modules["rules"] != "debug" {
		t.Errorf("rules module level = %q, want debug", logCfg.Modules["rules"])
	}
	if _, ok := logCfg.Modules["player"]; ok {
		t.Error("unset module levels should not be present")
	}
}
