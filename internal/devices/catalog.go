// Package devices enumerates video and audio capture endpoints as
// (display name, identifier) pairs.
package devices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/pairomaniac/capture-stream/internal/logging"
	"github.com/pairomaniac/capture-stream/internal/probe"
)

// Kind distinguishes video from audio endpoints.
type Kind int

// Endpoint kinds.
const (
	Video Kind = iota
	Audio
)

func (k Kind) String() string {
	if k == Audio {
		return "audio"
	}
	return "video"
}

// Endpoint is one selectable capture endpoint. Only Identifier is persisted.
type Endpoint struct {
	DisplayName string `yaml:"name"`
	Identifier  string `yaml:"identifier"`
	Kind        Kind   `yaml:"-"`
	Description string `yaml:"description,omitempty"`
}

// ErrUnresolved is returned when a display name matches no endpoint.
var ErrUnresolved = errors.New("no device with that name")

// KnownCaptureCard matches ALSA card descriptions of common capture hardware.
var KnownCaptureCard = regexp.MustCompile(
	`(?i)Elgato|Game Capture|Cam Link|Live Gamer|Magewell|USB Capture|` +
		`Blackmagic|Intensity|DeckLink|HDMI.*In|SDI`)

// Source provides raw device records.
type Source interface {
	VideoNodes(ctx context.Context) ([]probe.VideoNode, error)
	CaptureCards(ctx context.Context) ([]probe.CaptureCard, error)
}

// Catalog lists endpoints from a Source. Each call enumerates afresh.
type Catalog struct {
	source Source
	logger *slog.Logger
}

// NewCatalog creates a catalog over source.
func NewCatalog(source Source) *Catalog {
	return &Catalog{
		source: source,
		logger: logging.GetLogger("devices"),
	}
}

// ListVideoDevices returns video endpoints. An empty result is not an error.
func (c *Catalog) ListVideoDevices(ctx context.Context) ([]Endpoint, error) {
	nodes, err := c.source.VideoNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list video devices: %w", err)
	}
	endpoints := make([]Endpoint, 0, len(nodes))
	for _, n := range nodes {
		endpoints = append(endpoints, Endpoint{DisplayName: n.Name, Identifier: n.Path, Kind: Video})
	}
	endpoints = dedupe(endpoints)
	c.logger.Debug("Video devices", "count", len(endpoints))
	return endpoints, nil
}

// ListAudioDevices returns audio endpoints whose card description matches
// KnownCaptureCard.
func (c *Catalog) ListAudioDevices(ctx context.Context) ([]Endpoint, error) {
	all, err := c.ListAllAudioDevices(ctx)
	if err != nil {
		return nil, err
	}
	known := make([]Endpoint, 0, len(all))
	for _, e := range all {
		if KnownCaptureCard.MatchString(e.Description) {
			known = append(known, e)
		}
	}
	c.logger.Debug("Known capture card audio", "count", len(known), "total", len(all))
	return known, nil
}

// ListAllAudioDevices returns every audio capture endpoint, unfiltered.
func (c *Catalog) ListAllAudioDevices(ctx context.Context) ([]Endpoint, error) {
	cards, err := c.source.CaptureCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	endpoints := make([]Endpoint, 0, len(cards))
	for _, card := range cards {
		endpoints = append(endpoints, Endpoint{
			DisplayName: card.Name,
			Identifier:  card.Identifier,
			Kind:        Audio,
			Description: card.Description,
		})
	}
	return dedupe(endpoints), nil
}

func dedupe(endpoints []Endpoint) []Endpoint {
	type key struct{ name, id string }
	seen := make(map[key]bool, len(endpoints))
	out := endpoints[:0]
	for _, e := range endpoints {
		k := key{e.DisplayName, e.Identifier}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

// ResolveIdentifier returns the identifier of the first endpoint named name.
func ResolveIdentifier(endpoints []Endpoint, name string) (string, error) {
	for _, e := range endpoints {
		if e.DisplayName == name {
			return e.Identifier, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnresolved, name)
}

// DisplayNameOf returns the display name of the endpoint with identifier id,
// or "" when none matches.
func DisplayNameOf(endpoints []Endpoint, id string) string {
	for _, e := range endpoints {
		if e.Identifier == id {
			return e.DisplayName
		}
	}
	return ""
}

// DisplayNames returns the display names in enumeration order. Duplicate
// names are kept once, at their first position.
func DisplayNames(endpoints []Endpoint) []string {
	seen := make(map[string]bool, len(endpoints))
	names := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		if seen[e.DisplayName] {
			continue
		}
		seen[e.DisplayName] = true
		names = append(names, e.DisplayName)
	}
	return names
}
