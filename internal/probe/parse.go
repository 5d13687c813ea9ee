package probe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	busSuffix   = regexp.MustCompile(`\s*\((usb|pci)-[^)]*\)\s*$`)
	cardLine    = regexp.MustCompile(`card\s+(\d+):\s+\w+\s+\[([^\]]+)\]`)
	formatTag   = regexp.MustCompile(`'([A-Z0-9]+)'`)
	frameSize   = regexp.MustCompile(`(\d+)x(\d+)`)
	frameRateRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*fps`)
)

// CleanDeviceName strips the bus suffix v4l2-ctl appends and collapses the
// "X: X" form some drivers report.
func CleanDeviceName(name string) string {
	clean := busSuffix.ReplaceAllString(name, "")
	if left, right, ok := strings.Cut(clean, ": "); ok {
		if strings.TrimSpace(left) == strings.TrimSpace(right) {
			clean = strings.TrimSpace(left)
		}
	}
	return clean
}

// ParseVideoNodes parses `v4l2-ctl --list-devices`. Each unindented line
// opens a device block; the block's first /dev/video line is its node.
func ParseVideoNodes(out string) []VideoNode {
	var nodes []VideoNode
	var name string
	seen := make(map[string]bool)

	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line[0] != ' ' && line[0] != '\t' {
			name = strings.TrimSuffix(strings.TrimRight(line, " \r"), ":")
			continue
		}
		if name == "" || seen[name] || !strings.Contains(line, "/dev/video") {
			continue
		}
		nodes = append(nodes, VideoNode{Name: CleanDeviceName(name), Path: strings.TrimSpace(line)})
		seen[name] = true
	}
	return nodes
}

// ParseCaptureCards parses `arecord -l`, one entry per card. Every card is
// addressed as device 0.
func ParseCaptureCards(out string) []CaptureCard {
	var cards []CaptureCard
	seen := make(map[string]bool)

	for _, line := range strings.Split(out, "\n") {
		m := cardLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id := fmt.Sprintf("hw:%s,0", m[1])
		if seen[id] {
			continue
		}
		seen[id] = true
		cards = append(cards, CaptureCard{
			Name:        m[2],
			Identifier:  id,
			Description: strings.TrimSpace(line),
		})
	}
	return cards
}

// ParseFormats parses `v4l2-ctl -d DEV --list-formats-ext`.
func ParseFormats(out string) []RawFormat {
	var formats []RawFormat
	var cur *RawFormat
	var size *RawSize
	index := make(map[string]int)

	for _, line := range strings.Split(out, "\n") {
		if m := formatTag.FindStringSubmatch(line); m != nil {
			i, ok := index[m[1]]
			if !ok {
				formats = append(formats, RawFormat{Format: m[1]})
				i = len(formats) - 1
				index[m[1]] = i
			}
			cur = &formats[i]
			size = nil
			continue
		}
		if cur == nil {
			continue
		}
		if strings.Contains(line, "Size:") {
			if m := frameSize.FindStringSubmatch(line); m != nil {
				w, _ := strconv.Atoi(m[1])
				h, _ := strconv.Atoi(m[2])
				cur.Sizes = append(cur.Sizes, RawSize{Width: w, Height: h})
				size = &cur.Sizes[len(cur.Sizes)-1]
			}
			continue
		}
		if size == nil {
			continue
		}
		if m := frameRateRe.FindStringSubmatch(line); m != nil {
			if rate, err := strconv.ParseFloat(m[1], 64); err == nil {
				size.Rates = append(size.Rates, rate)
			}
		}
	}
	return formats
}
