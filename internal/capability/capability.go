// Package capability resolves pixel formats and policy filtered capture
// modes for a video device and derives the player's cache latency.
package capability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/pairomaniac/capture-stream/internal/logging"
	"github.com/pairomaniac/capture-stream/internal/probe"
)

// ErrNoSupportedModes is returned when a device/format pair has no mode
// inside the allow-lists.
var ErrNoSupportedModes = errors.New("no supported modes")

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// String formats the resolution as WxH.
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// ParseResolution parses a WxH string.
func ParseResolution(s string) (Resolution, error) {
	w, h, ok := strings.Cut(strings.TrimSpace(s), "x")
	if !ok {
		return Resolution{}, fmt.Errorf("invalid resolution %q", s)
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return Resolution{}, fmt.Errorf("invalid resolution %q", s)
	}
	return Resolution{Width: width, Height: height}, nil
}

// Mode is one (resolution, fps) pair valid for a device and format.
type Mode struct {
	Resolution Resolution `yaml:"resolution"`
	FPS        int        `yaml:"fps"`
}

// Allowed resolutions and framerates. Modes outside these sets are dropped.
var (
	AllowedResolutions = []Resolution{
		{3840, 2160},
		{2560, 1440},
		{1920, 1080},
		{1280, 720},
	}
	AllowedFPS = []int{25, 30, 50, 60}
)

// UHD is the resolution that gets the larger base latency.
var UHD = Resolution{3840, 2160}

// Source provides raw format records for a device.
type Source interface {
	FormatModes(ctx context.Context, device string) ([]probe.RawFormat, error)
}

// Resolver queries formats and modes for video devices.
type Resolver struct {
	source Source
	logger *slog.Logger
}

// NewResolver creates a resolver over source.
func NewResolver(source Source) *Resolver {
	return &Resolver{
		source: source,
		logger: logging.GetLogger("capability"),
	}
}

// ListFormats returns the device's pixel formats in enumeration order,
// without filtering.
func (r *Resolver) ListFormats(ctx context.Context, device string) ([]string, error) {
	raw, err := r.source.FormatModes(ctx, device)
	if err != nil {
		return nil, fmt.Errorf("list formats for %s: %w", device, err)
	}
	formats := make([]string, 0, len(raw))
	for _, f := range raw {
		formats = append(formats, f.Format)
	}
	return formats, nil
}

// ListModes returns the allow-listed modes of device in format.
// Fractional rates are truncated toward zero; duplicates are dropped.
// An empty result is reported as ErrNoSupportedModes.
func (r *Resolver) ListModes(ctx context.Context, device, format string) ([]Mode, error) {
	raw, err := r.source.FormatModes(ctx, device)
	if err != nil {
		return nil, fmt.Errorf("list modes for %s: %w", device, err)
	}

	modes := FilterModes(raw, format)
	r.logger.Debug("Resolved modes", "device", device, "format", format, "count", len(modes))
	if len(modes) == 0 {
		return nil, fmt.Errorf("%w for %s in %s", ErrNoSupportedModes, device, format)
	}
	return modes, nil
}

// FilterModes applies the allow-lists to the sizes of format in raw.
func FilterModes(raw []probe.RawFormat, format string) []Mode {
	var modes []Mode
	seen := make(map[Mode]bool)
	for _, f := range raw {
		if f.Format != format {
			continue
		}
		for _, size := range f.Sizes {
			res := Resolution{size.Width, size.Height}
			if !slices.Contains(AllowedResolutions, res) {
				continue
			}
			for _, rate := range size.Rates {
				m := Mode{Resolution: res, FPS: int(rate)}
				if !slices.Contains(AllowedFPS, m.FPS) || seen[m] {
					continue
				}
				seen[m] = true
				modes = append(modes, m)
			}
		}
	}
	return modes
}

// DefaultFormat returns preferred when available, else the first available
// format. It returns "" only when available is empty.
func DefaultFormat(available []string, preferred string) string {
	if preferred != "" && slices.Contains(available, preferred) {
		return preferred
	}
	if len(available) == 0 {
		return ""
	}
	return available[0]
}

// Resolutions returns the distinct resolutions in modes, widest first.
func Resolutions(modes []Mode) []Resolution {
	var out []Resolution
	for _, m := range modes {
		if !slices.Contains(out, m.Resolution) {
			out = append(out, m.Resolution)
		}
	}
	slices.SortStableFunc(out, func(a, b Resolution) int {
		return b.Width - a.Width
	})
	return out
}

// FramerateChoices returns the distinct fps valid for res, highest first.
func FramerateChoices(modes []Mode, res Resolution) []int {
	var out []int
	for _, m := range modes {
		if m.Resolution == res && !slices.Contains(out, m.FPS) {
			out = append(out, m.FPS)
		}
	}
	slices.Sort(out)
	slices.Reverse(out)
	return out
}

// Latency returns the live-caching value in milliseconds for res.
func Latency(res Resolution, extraBuffer bool) int {
	latency := 20
	if res == UHD {
		latency = 40
	}
	if extraBuffer {
		latency += 20
	}
	return latency
}
