// Package probe runs v4l2-ctl and arecord and turns their text output into
// structured records. Nothing else in the module reads tool output.
package probe

import (
	"context"
	"log/slog"

	"github.com/pairomaniac/capture-stream/internal/logging"
	"github.com/pairomaniac/capture-stream/internal/process"
)

// Runner executes a command and returns its stdout. Implementations return
// empty output for a missing binary or a failing command and an error only
// when ctx ends.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

// VideoNode is the first /dev/video* node of one v4l2-ctl device block.
type VideoNode struct {
	Name string
	Path string
}

// CaptureCard is one ALSA capture card as listed by arecord.
type CaptureCard struct {
	Name        string
	Identifier  string // hw:N,0
	Description string // the whole arecord line
}

// RawSize is one discrete frame size with the rates v4l2-ctl reported for it.
type RawSize struct {
	Width  int
	Height int
	Rates  []float64
}

// RawFormat is one pixel format with its frame sizes in enumeration order.
type RawFormat struct {
	Format string
	Sizes  []RawSize
}

// Prober queries the capture hardware through the external tools.
type Prober struct {
	run    Runner
	logger *slog.Logger
}

// New returns a Prober backed by process.Output.
func New() *Prober {
	return NewWithRunner(process.Output)
}

// NewWithRunner returns a Prober that runs commands through run.
func NewWithRunner(run Runner) *Prober {
	return &Prober{
		run:    run,
		logger: logging.GetLogger("devices"),
	}
}

// VideoNodes lists video capture devices.
func (p *Prober) VideoNodes(ctx context.Context) ([]VideoNode, error) {
	out, err := p.run(ctx, "v4l2-ctl", "--list-devices")
	if err != nil {
		return nil, err
	}
	nodes := ParseVideoNodes(out)
	p.logger.Debug("Probed video nodes", "count", len(nodes))
	return nodes, nil
}

// CaptureCards lists ALSA capture cards.
func (p *Prober) CaptureCards(ctx context.Context) ([]CaptureCard, error) {
	out, err := p.run(ctx, "arecord", "-l")
	if err != nil {
		return nil, err
	}
	cards := ParseCaptureCards(out)
	p.logger.Debug("Probed capture cards", "count", len(cards))
	return cards, nil
}

// FormatModes lists the pixel formats of device with their sizes and rates.
func (p *Prober) FormatModes(ctx context.Context, device string) ([]RawFormat, error) {
	out, err := p.run(ctx, "v4l2-ctl", "-d", device, "--list-formats-ext")
	if err != nil {
		return nil, err
	}
	formats := ParseFormats(out)
	p.logger.Debug("Probed formats", "device", device, "count", len(formats))
	return formats, nil
}
