// Package diagnostics checks that the external tools are installed and
// derives the install command for the host's distro family.
package diagnostics

import (
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/pairomaniac/capture-stream/internal/desktop"
	"gopkg.in/ini.v1"
)

var lookPath = exec.LookPath

// OSReleasePath is read to detect the distro family.
var OSReleasePath = "/etc/os-release"

// Distro families with a known package manager.
const (
	FamilyFedora = "fedora"
	FamilyDebian = "debian"
	FamilyArch   = "arch"
	FamilySUSE   = "suse"
)

var familyIDs = []struct {
	family string
	ids    []string
}{
	{FamilyFedora, []string{"fedora"}},
	{FamilyDebian, []string{"ubuntu", "debian"}},
	{FamilyArch, []string{"arch"}},
	{FamilySUSE, []string{"opensuse", "suse"}},
}

var installPrefix = map[string]string{
	FamilyFedora: "sudo dnf install",
	FamilyDebian: "sudo apt install",
	FamilyArch:   "sudo pacman -S",
	FamilySUSE:   "sudo zypper install",
}

// Packages named the same on every family.
var universalPackages = map[string]string{
	"v4l2-ctl": "v4l-utils",
	"vlc":      "vlc",
	"arecord":  "alsa-utils",
	"wmctrl":   "wmctrl",
	"zenity":   "zenity",
}

// Packages whose name depends on the family.
var familyPackages = map[string]map[string]string{
	"pactl": {
		FamilyFedora: "pulseaudio-utils",
		FamilyDebian: "pulseaudio-utils",
		FamilyArch:   "libpulse",
		FamilySUSE:   "pulseaudio-utils",
	},
}

// BinaryStatus reports whether one tool was found.
type BinaryStatus struct {
	Name  string `yaml:"name"`
	Found bool   `yaml:"found"`
	Path  string `yaml:"path,omitempty"`
}

// DependencyReport is the result of a dependency check.
type DependencyReport struct {
	Binaries           []BinaryStatus `yaml:"binaries"`
	Family             string         `yaml:"family,omitempty"`
	AllRequiredPresent bool           `yaml:"all_required_present"`
}

// MissingError reports missing tools with the packages that provide them.
type MissingError struct {
	Packages []string
	Hint     string // install command, empty when the family is unknown
}

func (e *MissingError) Error() string {
	msg := "missing packages: " + strings.Join(e.Packages, ", ")
	if e.Hint != "" {
		msg += "\n\nInstall with:\n" + e.Hint
	}
	return msg
}

// RequiredBinaries lists the tools needed in session. The player and prompt
// names come from the options so a custom binary is checked instead.
func RequiredBinaries(session desktop.Session, player, prompt string) []string {
	required := []string{"v4l2-ctl", player, "arecord", "pactl", prompt}
	if session.IsX11() {
		required = append(required, "wmctrl")
	}
	return required
}

// DetectDependencies looks up every binary in names.
func DetectDependencies(names []string) DependencyReport {
	report := DependencyReport{AllRequiredPresent: true, Family: DetectFamily()}
	for _, name := range names {
		status := detectBinary(name)
		report.Binaries = append(report.Binaries, status)
		if !status.Found {
			report.AllRequiredPresent = false
		}
	}
	return report
}

// Missing returns the report's missing tools as a MissingError, or nil.
func (r DependencyReport) Missing() error {
	var pkgs []string
	for _, b := range r.Binaries {
		if b.Found {
			continue
		}
		pkg := packageFor(b.Name, r.Family)
		if !slices.Contains(pkgs, pkg) {
			pkgs = append(pkgs, pkg)
		}
	}
	if len(pkgs) == 0 {
		return nil
	}
	slices.Sort(pkgs)
	return &MissingError{Packages: pkgs, Hint: InstallHint(r.Family, pkgs)}
}

// Check is DetectDependencies followed by Missing.
func Check(names []string) error {
	return DetectDependencies(names).Missing()
}

func detectBinary(name string) BinaryStatus {
	path, err := lookPath(name)
	if err != nil {
		return BinaryStatus{Name: name, Found: false}
	}
	return BinaryStatus{Name: name, Found: true, Path: path}
}

func packageFor(binary, family string) string {
	if pkg, ok := universalPackages[binary]; ok {
		return pkg
	}
	if pkg, ok := familyPackages[binary][family]; ok {
		return pkg
	}
	return binary
}

// InstallHint returns the install command for pkgs, or "" for an unknown
// family.
func InstallHint(family string, pkgs []string) string {
	prefix, ok := installPrefix[family]
	if !ok || len(pkgs) == 0 {
		return ""
	}
	return fmt.Sprintf("%s %s", prefix, strings.Join(pkgs, " "))
}

// DetectFamily maps ID and ID_LIKE in os-release to a distro family.
// It returns "" when the file is missing or no family matches.
func DetectFamily() string {
	cfg, err := ini.LoadSources(ini.LoadOptions{Loose: true, IgnoreInlineComment: true}, OSReleasePath)
	if err != nil {
		return ""
	}
	section := cfg.Section(ini.DefaultSection)

	ids := strings.Fields(strings.ToLower(section.Key("ID_LIKE").String()))
	ids = append(ids, strings.ToLower(section.Key("ID").String()))

	for _, f := range familyIDs {
		for _, id := range f.ids {
			if slices.Contains(ids, id) {
				return f.family
			}
		}
	}
	return ""
}
