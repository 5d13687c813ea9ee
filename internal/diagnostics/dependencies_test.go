package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pairomaniac/capture-stream/internal/desktop"
)

func withOSRelease(t *testing.T, content string) {
	t.Helper()
	orig := OSReleasePath
	t.Cleanup(func() { OSReleasePath = orig })

	OSReleasePath = filepath.Join(t.TempDir(), "os-release")
	if content == "" {
		return
	}
	if err := os.WriteFile(OSReleasePath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func withLookPath(t *testing.T, present ...string) {
	t.Helper()
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })

	lookPath = func(file string) (string, error) {
		for _, p := range present {
			if p == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", errors.New("not found")
	}
}

func TestDetectFamily(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"fedora", "NAME=\"Fedora Linux\"\nID=fedora\nVERSION_ID=41\n", FamilyFedora},
		{"ubuntu", "ID=ubuntu\nID_LIKE=debian\n", FamilyDebian},
		{"mint via id_like", "ID=linuxmint\nID_LIKE=\"ubuntu debian\"\n", FamilyDebian},
		{"endeavour", "ID=endeavouros\nID_LIKE=arch\n", FamilyArch},
		{"tumbleweed", "ID=\"opensuse-tumbleweed\"\nID_LIKE=\"opensuse suse\"\n", FamilySUSE},
		{"unknown", "ID=nixos\n", ""},
		{"missing file", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withOSRelease(t, tt.content)
			if got := DetectFamily(); got != tt.want {
				t.Errorf("DetectFamily() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequiredBinaries(t *testing.T) {
	wayland := RequiredBinaries(desktop.Session{Type: desktop.Wayland, Desktop: "KDE"}, "vlc", "zenity")
	if want := []string{"v4l2-ctl", "vlc", "arecord", "pactl", "zenity"}; !reflect.DeepEqual(wayland, want) {
		t.Errorf("wayland = %v, want %v", wayland, want)
	}

	x11 := RequiredBinaries(desktop.Session{Type: desktop.X11}, "/opt/vlc", "zenity")
	if x11[1] != "/opt/vlc" || x11[len(x11)-1] != "wmctrl" {
		t.Errorf("x11 = %v", x11)
	}
}

func TestCheckAllPresent(t *testing.T) {
	withOSRelease(t, "ID=fedora\n")
	withLookPath(t, "v4l2-ctl", "vlc", "arecord")

	if err := Check([]string{"v4l2-ctl", "vlc", "arecord"}); err != nil {
		t.Errorf("Check() = %v, want nil", err)
	}
}

func TestCheckMissingWithHint(t *testing.T) {
	withOSRelease(t, "ID=arch\n")
	withLookPath(t, "vlc")

	err := Check([]string{"v4l2-ctl", "vlc", "arecord", "pactl", "wmctrl"})
	var missing *MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingError, got %v", err)
	}

	wantPkgs := []string{"alsa-utils", "libpulse", "v4l-utils", "wmctrl"}
	if !reflect.DeepEqual(missing.Packages, wantPkgs) {
		t.Errorf("Packages = %v, want %v", missing.Packages, wantPkgs)
	}
	if want := "sudo pacman -S alsa-utils libpulse v4l-utils wmctrl"; missing.Hint != want {
		t.Errorf("Hint = %q, want %q", missing.Hint, want)
	}
}

func TestCheckMissingUnknownFamily(t *testing.T) {
	withOSRelease(t, "")
	withLookPath(t)

	err := Check([]string{"pactl", "custom-player"})
	var missing *MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingError, got %v", err)
	}
	if !reflect.DeepEqual(missing.Packages, []string{"custom-player", "pactl"}) {
		t.Errorf("Packages = %v", missing.Packages)
	}
	if missing.Hint != "" {
		t.Errorf("Hint = %q, want empty", missing.Hint)
	}
	if missing.Error() != "missing packages: custom-player, pactl" {
		t.Errorf("Error() = %q", missing.Error())
	}
}

func TestDetectDependenciesReport(t *testing.T) {
	withOSRelease(t, "ID=debian\n")
	withLookPath(t, "vlc")

	report := DetectDependencies([]string{"vlc", "zenity"})
	if report.AllRequiredPresent {
		t.Error("expected AllRequiredPresent to be false")
	}
	if report.Family != FamilyDebian {
		t.Errorf("Family = %q", report.Family)
	}
	if !report.Binaries[0].Found || report.Binaries[0].Path != "/usr/bin/vlc" {
		t.Errorf("vlc status = %+v", report.Binaries[0])
	}
	if report.Binaries[1].Found {
		t.Error("zenity should be missing")
	}
}
