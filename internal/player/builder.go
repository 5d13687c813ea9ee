package player

import (
	"fmt"
	"strconv"
)

// BuildArgs builds the VLC argument list for p, without the binary.
func BuildArgs(p Params) []string {
	args := []string{
		"--ignore-config",
		"--no-qt-privacy-ask",
		"v4l2://" + p.DevicePath,
		"--v4l2-width=" + strconv.Itoa(p.Width),
		"--v4l2-height=" + strconv.Itoa(p.Height),
		"--v4l2-fps=" + strconv.Itoa(p.FPS),
		"--v4l2-chroma=" + p.PixelFormat,
		":input-slave=alsa://" + p.AudioSource,
		":live-caching=" + strconv.Itoa(p.LatencyMs),
		"--aout=pulse",
		"--qt-minimal-view",
		"--no-mouse-events",
		"--no-video-title-show",
		"--meta-title=" + p.Title,
	}

	if p.Adjust != nil {
		args = append(args,
			"--video-filter=adjust",
			fmt.Sprintf("--brightness=%.2f", p.Adjust.Brightness),
			fmt.Sprintf("--contrast=%.2f", p.Adjust.Contrast),
		)
	}
	return args
}
