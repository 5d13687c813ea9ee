// Package display reads the desktop's HiDPI scale factor so window rules
// can be expressed in logical pixels.
package display

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pairomaniac/capture-stream/internal/desktop"
	"gopkg.in/ini.v1"
)

// Source locates the files and environment Scale reads.
type Source struct {
	ConfigHome string // usually ~/.config
	Getenv     func(string) string
}

// outputSection mirrors one top-level entry of kwinoutputconfig.json.
type outputSection struct {
	Name string `json:"name"`
	Data []struct {
		Scale float64 `json:"scale"`
	} `json:"data"`
}

// Scale returns the display scale factor, 1.0 when nothing says otherwise.
// On Plasma Wayland the first non-unit output scale in kwinoutputconfig.json
// wins, then [KScreen] ScaleFactor in kdeglobals. QT_SCALE_FACTOR and
// GDK_SCALE are consulted last on every session.
func Scale(session desktop.Session, src Source) float64 {
	if session.IsKDEWayland() {
		if s, ok := outputConfigScale(filepath.Join(src.ConfigHome, "kwinoutputconfig.json")); ok {
			return s
		}
		if s, ok := kdeGlobalsScale(filepath.Join(src.ConfigHome, "kdeglobals")); ok {
			return s
		}
	}

	getenv := src.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, name := range []string{"QT_SCALE_FACTOR", "GDK_SCALE"} {
		if v := getenv(name); v != "" {
			if s, err := strconv.ParseFloat(v, 64); err == nil && s > 0 {
				return s
			}
		}
	}
	return 1.0
}

func outputConfigScale(path string) (float64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	var sections []outputSection
	if err := json.Unmarshal(data, &sections); err != nil {
		return 0, false
	}
	for _, section := range sections {
		if section.Name != "outputs" {
			continue
		}
		for _, output := range section.Data {
			if output.Scale > 0 && output.Scale != 1.0 {
				return output.Scale, true
			}
		}
	}
	return 0, false
}

func kdeGlobalsScale(path string) (float64, bool) {
	cfg, err := ini.LoadSources(ini.LoadOptions{Loose: true, Insensitive: false}, path)
	if err != nil {
		return 0, false
	}
	key := cfg.Section("KScreen").Key("ScaleFactor")
	if key.String() == "" {
		return 0, false
	}
	s, err := key.Float64()
	if err != nil || s <= 0 {
		return 0, false
	}
	return s, true
}

// Logical converts a physical pixel length to logical pixels at scale,
// rounding to nearest.
func Logical(length int, scale float64) int {
	if scale <= 0 {
		return length
	}
	return int(float64(length)/scale + 0.5)
}
