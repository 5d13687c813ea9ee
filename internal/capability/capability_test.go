package capability

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/pairomaniac/capture-stream/internal/probe"
)

type fakeSource struct {
	formats []probe.RawFormat
	err     error
}

func (f fakeSource) FormatModes(context.Context, string) ([]probe.RawFormat, error) {
	return f.formats, f.err
}

func TestListModesAllowListFiltering(t *testing.T) {
	src := fakeSource{formats: []probe.RawFormat{
		{Format: "NV12", Sizes: []probe.RawSize{
			{Width: 3840, Height: 2160, Rates: []float64{29.97, 24}},
			{Width: 1920, Height: 1080, Rates: []float64{59.94, 60, 30, 60.5, 15, 120}},
			{Width: 1600, Height: 900, Rates: []float64{60}},
			{Width: 640, Height: 480, Rates: []float64{30}},
			{Width: 1280, Height: 720, Rates: []float64{50, 25.5}},
		}},
		{Format: "YUYV", Sizes: []probe.RawSize{
			{Width: 2560, Height: 1440, Rates: []float64{60}},
		}},
	}}
	r := NewResolver(src)

	got, err := r.ListModes(context.Background(), "/dev/video0", "NV12")
	if err != nil {
		t.Fatal(err)
	}

	want := []Mode{
		{Resolution{1920, 1080}, 60},
		{Resolution{1920, 1080}, 30},
		{Resolution{1280, 720}, 50},
		{Resolution{1280, 720}, 25},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListModes() = %v, want %v", got, want)
	}

	for _, m := range got {
		if !slices.Contains(AllowedResolutions, m.Resolution) {
			t.Errorf("resolution %v escaped the allow-list", m.Resolution)
		}
		if !slices.Contains(AllowedFPS, m.FPS) {
			t.Errorf("fps %d escaped the allow-list", m.FPS)
		}
	}
}

func TestListModesEmptyIsFatal(t *testing.T) {
	src := fakeSource{formats: []probe.RawFormat{
		{Format: "MJPG", Sizes: []probe.RawSize{{Width: 640, Height: 480, Rates: []float64{30}}}},
	}}
	r := NewResolver(src)

	if _, err := r.ListModes(context.Background(), "/dev/video0", "MJPG"); !errors.Is(err, ErrNoSupportedModes) {
		t.Errorf("expected ErrNoSupportedModes, got %v", err)
	}
	if _, err := r.ListModes(context.Background(), "/dev/video0", "NV12"); !errors.Is(err, ErrNoSupportedModes) {
		t.Errorf("expected ErrNoSupportedModes for absent format, got %v", err)
	}
}

func TestListFormats(t *testing.T) {
	r := NewResolver(fakeSource{formats: []probe.RawFormat{{Format: "YUYV"}, {Format: "NV12"}}})
	got, err := r.ListFormats(context.Background(), "/dev/video0")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"YUYV", "NV12"}) {
		t.Errorf("ListFormats() = %v", got)
	}

	r = NewResolver(fakeSource{err: context.Canceled})
	if _, err := r.ListFormats(context.Background(), "/dev/video0"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDefaultFormat(t *testing.T) {
	tests := []struct {
		name      string
		available []string
		preferred string
		want      string
	}{
		{"preferred present", []string{"YUYV", "NV12"}, "NV12", "NV12"},
		{"preferred absent", []string{"YUYV", "MJPG"}, "NV12", "YUYV"},
		{"no preference", []string{"MJPG"}, "", "MJPG"},
		{"nothing available", nil, "NV12", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultFormat(tt.available, tt.preferred); got != tt.want {
				t.Errorf("DefaultFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolutionsAndFramerates(t *testing.T) {
	modes := []Mode{
		{Resolution{1280, 720}, 60},
		{Resolution{1920, 1080}, 30},
		{Resolution{3840, 2160}, 30},
		{Resolution{1920, 1080}, 60},
		{Resolution{1920, 1080}, 50},
	}

	wantRes := []Resolution{{3840, 2160}, {1920, 1080}, {1280, 720}}
	if got := Resolutions(modes); !reflect.DeepEqual(got, wantRes) {
		t.Errorf("Resolutions() = %v, want %v", got, wantRes)
	}

	if got := FramerateChoices(modes, Resolution{1920, 1080}); !reflect.DeepEqual(got, []int{60, 50, 30}) {
		t.Errorf("FramerateChoices() = %v, want [60 50 30]", got)
	}
	if got := FramerateChoices(modes, Resolution{2560, 1440}); len(got) != 0 {
		t.Errorf("FramerateChoices(absent) = %v, want empty", got)
	}
}

func TestLatency(t *testing.T) {
	tests := []struct {
		res   Resolution
		extra bool
		want  int
	}{
		{Resolution{2560, 1440}, false, 20},
		{Resolution{3840, 2160}, false, 40},
		{Resolution{1920, 1080}, true, 40},
		{Resolution{3840, 2160}, true, 60},
		{Resolution{1280, 720}, false, 20},
	}
	for _, tt := range tests {
		if got := Latency(tt.res, tt.extra); got != tt.want {
			t.Errorf("Latency(%v, %v) = %d, want %d", tt.res, tt.extra, got, tt.want)
		}
	}
}

func TestParseResolution(t *testing.T) {
	got, err := ParseResolution("1920x1080")
	if err != nil || got != (Resolution{1920, 1080}) {
		t.Errorf("ParseResolution() = %v, %v", got, err)
	}
	if got.String() != "1920x1080" {
		t.Errorf("String() = %q", got.String())
	}
	for _, bad := range []string{"", "1920", "x1080", "axb", "0x0"} {
		if _, err := ParseResolution(bad); err == nil {
			t.Errorf("ParseResolution(%q) expected error", bad)
		}
	}
}
