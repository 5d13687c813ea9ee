// Package negotiate runs the device, format and mode negotiation and the
// player session that follows it.
package negotiate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pairomaniac/capture-stream/internal/capability"
	"github.com/pairomaniac/capture-stream/internal/devices"
	"github.com/pairomaniac/capture-stream/internal/events"
	"github.com/pairomaniac/capture-stream/internal/logging"
	"github.com/pairomaniac/capture-stream/internal/player"
	"github.com/pairomaniac/capture-stream/internal/prefs"
	"github.com/pairomaniac/capture-stream/internal/prompt"
	"github.com/pairomaniac/capture-stream/internal/rules"
)

// Dialog texts.
const (
	dialogTitle     = "Capture Stream"
	labelVideo      = "Video Device"
	labelAudio      = "Audio Device"
	labelResolution = "Resolution"
	labelColorSpace = "Color Space"
	labelBuffer     = "Extra Buffer"
	columnFramerate = "Framerate"
	answerNo        = "No"
	answerYes       = "Yes"
)

// Defaults for the session helpers.
const (
	DefaultTickInterval   = 500 * time.Millisecond
	DefaultWatchDebounce  = 300 * time.Millisecond
	defaultTokenLength    = 8
	formFieldCount        = 5
	windowTitleTemplate   = "Capture Stream %s [%s]"
	deviceRemovedExitCode = 1
)

// Catalog lists capture endpoints.
type Catalog interface {
	ListVideoDevices(ctx context.Context) ([]devices.Endpoint, error)
	ListAudioDevices(ctx context.Context) ([]devices.Endpoint, error)
	ListAllAudioDevices(ctx context.Context) ([]devices.Endpoint, error)
}

// Capabilities lists formats and modes for a video device.
type Capabilities interface {
	ListFormats(ctx context.Context, device string) ([]string, error)
	ListModes(ctx context.Context, device, format string) ([]capability.Mode, error)
}

// PreferenceStore loads and saves the persisted selections.
type PreferenceStore interface {
	Load() (prefs.Preferences, error)
	Save(p prefs.Preferences) error
}

// RemovalWatcher blocks until a device node is removed or ctx is done.
type RemovalWatcher interface {
	WatchRemoval(ctx context.Context, devicePath string) error
}

// Deps are the collaborators of a Negotiator. Hotplug may be nil.
type Deps struct {
	Catalog      Catalog
	Capabilities Capabilities
	Preferences  PreferenceStore
	Prompter     prompt.Prompter
	Rules        *rules.Manager
	Launcher     player.Launcher
	Bus          *events.Bus
	Hotplug      RemovalWatcher
}

// Selection is the outcome of a completed negotiation.
type Selection struct {
	VideoDevice string
	AudioDevice string
	Format      string
	Resolution  capability.Resolution
	FPS         int
	ColorSpace  prefs.ColorSpace
	ExtraBuffer bool
	LatencyMs   int
}

// Params converts the selection into player parameters.
func (s Selection) Params(title string) player.Params {
	return player.Params{
		DevicePath:  s.VideoDevice,
		Width:       s.Resolution.Width,
		Height:      s.Resolution.Height,
		FPS:         s.FPS,
		PixelFormat: s.Format,
		AudioSource: s.AudioDevice,
		LatencyMs:   s.LatencyMs,
		Adjust:      player.AdjustFor(s.ColorSpace),
		Title:       title,
	}
}

// Negotiator runs one negotiation and one player session.
type Negotiator struct {
	deps          Deps
	tickInterval  time.Duration
	watchDebounce time.Duration
	token         func() string
	logger        *slog.Logger
}

// Option configures a Negotiator.
type Option func(*Negotiator)

// WithTickInterval sets how often the rule backend is ticked while the
// player runs.
func WithTickInterval(d time.Duration) Option {
	return func(n *Negotiator) {
		n.tickInterval = d
	}
}

// WithWatchDebounce sets the rules-file watcher debounce.
func WithWatchDebounce(d time.Duration) Option {
	return func(n *Negotiator) {
		n.watchDebounce = d
	}
}

// WithToken overrides the per-session window title token.
func WithToken(token func() string) Option {
	return func(n *Negotiator) {
		n.token = token
	}
}

// New creates a Negotiator.
func New(deps Deps, opts ...Option) *Negotiator {
	n := &Negotiator{
		deps:          deps,
		tickInterval:  DefaultTickInterval,
		watchDebounce: DefaultWatchDebounce,
		token: func() string {
			return uuid.NewString()[:defaultTokenLength]
		},
		logger: logging.GetLogger("negotiate"),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.deps.Bus == nil {
		n.deps.Bus = events.New()
	}
	return n
}

// Run negotiates and then runs the player session. It returns the player's
// exit code.
func (n *Negotiator) Run(ctx context.Context) (int, error) {
	sel, err := n.Negotiate(ctx)
	if err != nil {
		return 0, err
	}
	return n.Session(ctx, sel)
}

// Negotiate enumerates devices, prompts the user and persists the result.
// It returns prompt.ErrCancelled when either dialog is dismissed.
func (n *Negotiator) Negotiate(ctx context.Context) (Selection, error) {
	videos, err := n.deps.Catalog.ListVideoDevices(ctx)
	if err != nil {
		return Selection{}, fmt.Errorf("list video devices: %w", err)
	}
	if len(videos) == 0 {
		return Selection{}, newError(ErrCodeNoDevicesFound, "no video capture devices found", nil)
	}

	audios, err := n.audioDevices(ctx)
	if err != nil {
		return Selection{}, err
	}

	saved := n.loadPreferences()

	device := videos[0].Identifier
	if devices.DisplayNameOf(videos, saved.VideoDevice) != "" {
		device = saved.VideoDevice
	}
	format, modes, err := n.resolveModes(ctx, device, saved.PixelFormat)
	if err != nil {
		return Selection{}, err
	}

	answers, err := n.deps.Prompter.Form(ctx, dialogTitle, n.formFields(videos, audios, modes, saved))
	if err != nil {
		return Selection{}, err
	}
	if len(answers) != formFieldCount {
		return Selection{}, fmt.Errorf("form returned %d answers, want %d", len(answers), formFieldCount)
	}

	videoID, err := devices.ResolveIdentifier(videos, answers[0])
	if err != nil {
		return Selection{}, newError(ErrCodeDeviceResolutionFailed, "video device "+strconv.Quote(answers[0]), err)
	}
	audioID, err := devices.ResolveIdentifier(audios, answers[1])
	if err != nil {
		return Selection{}, newError(ErrCodeDeviceResolutionFailed, "audio device "+strconv.Quote(answers[1]), err)
	}
	res, err := capability.ParseResolution(answers[2])
	if err != nil {
		return Selection{}, fmt.Errorf("form resolution: %w", err)
	}

	sel := Selection{
		VideoDevice: videoID,
		AudioDevice: audioID,
		Resolution:  res,
		ColorSpace:  parseColorSpace(answers[3]),
		ExtraBuffer: answers[4] == answerYes,
	}

	// The form listed modes of the default device; the user may have
	// picked another one.
	sel.Format, modes, err = n.resolveModes(ctx, videoID, saved.PixelFormat)
	if err != nil {
		return Selection{}, err
	}
	if format != sel.Format {
		n.logger.Debug("Format changed with device", "from", format, "to", sel.Format, "device", videoID)
	}

	rates := capability.FramerateChoices(modes, res)
	if len(rates) == 0 {
		return Selection{}, newError(ErrCodeNoSupportedModes,
			fmt.Sprintf("%s has no supported framerate at %s in %s", videoID, res, sel.Format), capability.ErrNoSupportedModes)
	}
	if sel.FPS, err = n.chooseFramerate(ctx, rates); err != nil {
		return Selection{}, err
	}
	sel.LatencyMs = capability.Latency(res, sel.ExtraBuffer)

	n.savePreferences(sel)
	n.logger.Info("Negotiated capture",
		"video", sel.VideoDevice,
		"audio", sel.AudioDevice,
		"format", sel.Format,
		"resolution", sel.Resolution.String(),
		"fps", sel.FPS,
		"color_space", sel.ColorSpace,
		"latency_ms", sel.LatencyMs)
	return sel, nil
}

// audioDevices returns capture-card audio, falling back to every card when
// none matches the keyword filter.
func (n *Negotiator) audioDevices(ctx context.Context) ([]devices.Endpoint, error) {
	audios, err := n.deps.Catalog.ListAudioDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	if len(audios) > 0 {
		return audios, nil
	}

	n.logger.Info("No known capture card audio, offering all cards")
	audios, err = n.deps.Catalog.ListAllAudioDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	if len(audios) == 0 {
		return nil, newError(ErrCodeNoDevicesFound, "no audio capture devices found", nil)
	}
	return audios, nil
}

// resolveModes picks the format for device and lists its modes.
func (n *Negotiator) resolveModes(ctx context.Context, device, preferred string) (string, []capability.Mode, error) {
	formats, err := n.deps.Capabilities.ListFormats(ctx, device)
	if err != nil {
		return "", nil, err
	}
	format := capability.DefaultFormat(formats, preferred)
	if format == "" {
		return "", nil, newError(ErrCodeNoSupportedModes, device+" reports no pixel formats", capability.ErrNoSupportedModes)
	}

	modes, err := n.deps.Capabilities.ListModes(ctx, device, format)
	if errors.Is(err, capability.ErrNoSupportedModes) {
		return "", nil, newError(ErrCodeNoSupportedModes, fmt.Sprintf("%s has no supported modes in %s", device, format), err)
	}
	if err != nil {
		return "", nil, err
	}
	return format, modes, nil
}

func (n *Negotiator) formFields(videos, audios []devices.Endpoint, modes []capability.Mode, saved prefs.Preferences) []prompt.Field {
	var resolutions []string
	for _, r := range capability.Resolutions(modes) {
		resolutions = append(resolutions, r.String())
	}
	var colorSpaces []string
	for _, cs := range prefs.ColorSpaces {
		colorSpaces = append(colorSpaces, string(cs))
	}
	buffer := answerNo
	if saved.ExtraBuffer {
		buffer = answerYes
	}

	return []prompt.Field{
		{Label: labelVideo, Values: prefs.Prioritize(devices.DisplayNameOf(videos, saved.VideoDevice), devices.DisplayNames(videos))},
		{Label: labelAudio, Values: prefs.Prioritize(devices.DisplayNameOf(audios, saved.AudioDevice), devices.DisplayNames(audios))},
		{Label: labelResolution, Values: prefs.Prioritize(saved.Resolution, resolutions)},
		{Label: labelColorSpace, Values: prefs.Prioritize(string(saved.ColorSpace), colorSpaces)},
		{Label: labelBuffer, Values: prefs.Prioritize(buffer, []string{answerNo, answerYes})},
	}
}

// chooseFramerate prompts only when there is a choice to make. Rates are
// offered in the descending order they arrive in, whatever was saved last.
func (n *Negotiator) chooseFramerate(ctx context.Context, rates []int) (int, error) {
	if len(rates) == 1 {
		return rates[0], nil
	}

	items := make([]string, len(rates))
	for i, r := range rates {
		items[i] = strconv.Itoa(r)
	}
	answer, err := n.deps.Prompter.List(ctx, dialogTitle, columnFramerate, items)
	if err != nil {
		return 0, err
	}
	fps, err := strconv.Atoi(answer)
	if err != nil || !slices.Contains(rates, fps) {
		return 0, fmt.Errorf("invalid framerate %q", answer)
	}
	return fps, nil
}

// loadPreferences falls back to defaults on an unreadable file; the file is
// rewritten after the negotiation completes.
func (n *Negotiator) loadPreferences() prefs.Preferences {
	saved, err := n.deps.Preferences.Load()
	if err != nil {
		n.logger.Warn("Failed to load preferences, using defaults", "error", err)
		return prefs.Defaults()
	}
	return saved
}

func (n *Negotiator) savePreferences(sel Selection) {
	err := n.deps.Preferences.Save(prefs.Preferences{
		VideoDevice: sel.VideoDevice,
		AudioDevice: sel.AudioDevice,
		Resolution:  sel.Resolution.String(),
		ColorSpace:  sel.ColorSpace,
		PixelFormat: sel.Format,
		ExtraBuffer: sel.ExtraBuffer,
		FPS:         sel.FPS,
	})
	if err != nil {
		n.logger.Warn("Failed to save preferences", "error", err)
	}
}

func parseColorSpace(answer string) prefs.ColorSpace {
	cs := prefs.ColorSpace(answer)
	if slices.Contains(prefs.ColorSpaces, cs) {
		return cs
	}
	return prefs.SDR
}
