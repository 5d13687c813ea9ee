package player

import "github.com/pairomaniac/capture-stream/internal/prefs"

// ColorAdjust holds the values passed to VLC's adjust filter.
type ColorAdjust struct {
	Brightness float64
	Contrast   float64
}

// hdrPreset compensates for washed-out HDR sources on SDR displays.
var hdrPreset = ColorAdjust{Brightness: 1.10, Contrast: 1.15}

// AdjustFor returns the adjustment for a color space, nil for none.
func AdjustFor(cs prefs.ColorSpace) *ColorAdjust {
	if cs == prefs.HDR {
		adjust := hdrPreset
		return &adjust
	}
	return nil
}

// Params is the fully resolved parameter set for one player run.
type Params struct {
	// Video input
	DevicePath  string // /dev/video2
	Width       int
	Height      int
	FPS         int
	PixelFormat string // NV12, YUYV, etc.

	// Audio input
	AudioSource string // hw:2,0

	// Playback
	LatencyMs int          // live-caching in milliseconds
	Adjust    *ColorAdjust // nil = no adjust filter
	Title     string       // window title the rule matches on
}
