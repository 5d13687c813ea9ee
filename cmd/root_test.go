package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pairomaniac/capture-stream/internal/capability"
	"github.com/pairomaniac/capture-stream/internal/devices"
	"github.com/pairomaniac/capture-stream/internal/probe"
	"gopkg.in/yaml.v3"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, c := range NewRootCmd().Commands() {
		found[c.Name()] = true
	}
	for _, name := range []string{"uninstall", "cleanup", "devices"} {
		if !found[name] {
			t.Errorf("expected subcommand %q not found", name)
		}
	}
}

func TestRootCommand_NoFlags(t *testing.T) {
	root := NewRootCmd()
	if root.Flags().HasFlags() {
		t.Error("root command should not define flags")
	}
}

func TestExecute_UsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{"bogus"},
		{"devices", "extra"},
		{"--fullscreen"},
	} {
		var stderr bytes.Buffer
		if code := Execute(context.Background(), args, &stderr); code != ExitFailure {
			t.Errorf("Execute(%v) = %d, want %d", args, code, ExitFailure)
		}
		if !strings.Contains(stderr.String(), "capture-stream:") {
			t.Errorf("Execute(%v) printed no error: %q", args, stderr.String())
		}
	}
}

type fakePurger struct {
	stale []string
	all   []string
	err   error
}

func (f *fakePurger) PurgeStale(context.Context) ([]string, error) {
	return f.stale, f.err
}

func (f *fakePurger) PurgeAll(context.Context) ([]string, error) {
	return f.all, f.err
}

func TestUninstall(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "applications", desktopEntryName)
	configDir := filepath.Join(dir, "capture-stream")
	for _, p := range []string{entry, filepath.Join(configDir, "preferences.toml")} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var out bytes.Buffer
	targets := []string{entry, configDir, filepath.Join(configDir, "preferences.toml"), filepath.Join(dir, "missing")}
	err := uninstall(context.Background(), &out, targets, &fakePurger{all: []string{"capture-stream-12"}})
	if err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{entry, configDir} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s still exists", p)
		}
	}
	got := out.String()
	for _, want := range []string{"Removed window rule capture-stream-12", "Removed " + entry, "Removed " + configDir} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "missing") {
		t.Errorf("reported a target that did not exist:\n%s", got)
	}
}

func TestUninstallPurgeError(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	err := uninstall(context.Background(), &out, []string{dir}, &fakePurger{err: errors.New("read only")})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, statErr := os.Stat(dir); statErr != nil {
		t.Error("files removed although rule purge failed")
	}
}

func TestCleanup(t *testing.T) {
	var out bytes.Buffer
	if err := cleanup(context.Background(), &out, &fakePurger{stale: []string{"capture-stream-3", "capture-stream-9"}}); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(out.String(), "Removed stale window rule"); got != 2 {
		t.Errorf("output:\n%s", out.String())
	}

	out.Reset()
	if err := cleanup(context.Background(), &out, &fakePurger{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No stale window rules") {
		t.Errorf("output:\n%s", out.String())
	}
}

const (
	listDevicesOut = `Cam Link 4K: Cam Link 4K (usb-0000:00:14.0-2):
	/dev/video2
	/dev/video3
`
	arecordOut = `**** List of CAPTURE Hardware Devices ****
card 0: PCH [HDA Intel PCH], device 0: ALC257 Analog [ALC257 Analog]
card 2: Link4K [Cam Link 4K], device 0: USB Audio [USB Audio]
`
	formatsOut = `ioctl: VIDIOC_ENUM_FMT
	Type: Video Capture

	[0]: 'NV12' (Y/UV 4:2:0)
		Size: Discrete 1920x1080
			Interval: Discrete 0.017s (59.940 fps)
			Interval: Discrete 0.033s (30.000 fps)
		Size: Discrete 1280x720
			Interval: Discrete 0.017s (60.000 fps)
	[1]: 'MJPG' (Motion-JPEG, compressed)
		Size: Discrete 640x480
			Interval: Discrete 0.033s (30.000 fps)
`
)

func fakeRunner(_ context.Context, name string, args ...string) (string, error) {
	switch {
	case name == "arecord":
		return arecordOut, nil
	case name == "v4l2-ctl" && len(args) == 1:
		return listDevicesOut, nil
	case name == "v4l2-ctl":
		return formatsOut, nil
	}
	return "", nil
}

func TestBuildDeviceReport(t *testing.T) {
	prober := probe.NewWithRunner(fakeRunner)
	report, err := buildDeviceReport(context.Background(), devices.NewCatalog(prober), capability.NewResolver(prober))
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Video) != 1 || report.Video[0].Identifier != "/dev/video2" {
		t.Fatalf("video = %+v", report.Video)
	}
	formats := report.Video[0].Formats
	if len(formats) != 2 {
		t.Fatalf("formats = %+v", formats)
	}
	if got := strings.Join(formats[0].Modes, ","); got != "1920x1080@30,1280x720@60" {
		t.Errorf("NV12 modes = %s", got)
	}
	if len(formats[1].Modes) != 0 {
		t.Errorf("MJPG modes = %v, want none", formats[1].Modes)
	}

	if len(report.Audio) != 2 {
		t.Fatalf("audio = %+v", report.Audio)
	}
	if report.Audio[0].CaptureCard || !report.Audio[1].CaptureCard {
		t.Errorf("capture card flags = %v, %v", report.Audio[0].CaptureCard, report.Audio[1].CaptureCard)
	}

	var buf bytes.Buffer
	if err := writeYAML(&buf, report); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "identifier: /dev/video2") {
		t.Errorf("YAML missing identifier:\n%s", buf.String())
	}
}

func TestRootCommand_Version(t *testing.T) {
	if NewRootCmd().Version == "" {
		t.Error("root command version should be set")
	}
}
