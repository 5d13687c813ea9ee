// Package prefs persists the last negotiated capture selection.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

// ColorSpace selects the player's color adjustment preset.
type ColorSpace string

// Color spaces.
const (
	SDR ColorSpace = "SDR"
	HDR ColorSpace = "HDR"
)

// ColorSpaces lists the selectable color spaces in display order.
var ColorSpaces = []ColorSpace{SDR, HDR}

// DefaultPixelFormat is the preferred format on first run.
const DefaultPixelFormat = "NV12"

// Preferences is the sole durable state of the tool.
type Preferences struct {
	VideoDevice string     `toml:"video_device"`
	AudioDevice string     `toml:"audio_device"`
	Resolution  string     `toml:"resolution"`
	ColorSpace  ColorSpace `toml:"color_space"`
	PixelFormat string     `toml:"pixel_format"`
	ExtraBuffer bool       `toml:"extra_buffer"`
	FPS         int        `toml:"fps"`
}

// Defaults returns the first-run preferences.
func Defaults() Preferences {
	return Preferences{
		ColorSpace:  SDR,
		PixelFormat: DefaultPixelFormat,
	}
}

// document is the on-disk layout.
type document struct {
	Capture Preferences `toml:"capture"`
}

// Store reads and writes preferences at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store for the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the preferences. When the file does not exist the defaults are
// written and returned. Keys missing from the file keep their defaults.
func (s *Store) Load() (Preferences, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		p := Defaults()
		if saveErr := s.Save(p); saveErr != nil {
			return p, saveErr
		}
		return p, nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to read preferences: %w", err)
	}

	doc := document{Capture: Defaults()}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return Preferences{}, fmt.Errorf("failed to parse preferences %s: %w", s.path, err)
	}
	if !slices.Contains(ColorSpaces, doc.Capture.ColorSpace) {
		doc.Capture.ColorSpace = SDR
	}
	return doc.Capture, nil
}

// Save writes p, creating the parent directory if needed.
func (s *Store) Save(p Preferences) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	data, err := toml.Marshal(document{Capture: p})
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}

// Prioritize returns candidates with saved moved to the front. The rest keep
// their relative order. A zero or absent saved value leaves the order as is.
// The input slice is not modified.
func Prioritize[T comparable](saved T, candidates []T) []T {
	out := slices.Clone(candidates)
	var zero T
	if saved == zero {
		return out
	}
	i := slices.Index(out, saved)
	if i <= 0 {
		return out
	}
	copy(out[1:i+1], out[:i])
	out[0] = saved
	return out
}
