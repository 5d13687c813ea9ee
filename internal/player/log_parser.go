package player

import "strings"

// ParseLogLevel extracts the level from a VLC stderr line such as
// "[000055d5c8e0a0f0] v4l2 demux error: cannot open device".
// Lines without a recognised level are reported at debug.
func ParseLogLevel(line string) (level, msg string) {
	if len(line) < 3 || line[0] != '[' {
		return "debug", line
	}

	end := strings.Index(line, "] ")
	if end == -1 {
		return "debug", line
	}

	rest := line[end+2:]
	header, body, ok := strings.Cut(rest, ": ")
	if !ok {
		return "debug", line
	}

	fields := strings.Fields(header)
	if len(fields) == 0 {
		return "debug", line
	}
	switch last := fields[len(fields)-1]; last {
	case "error", "warning", "debug", "info":
		component := strings.Join(fields[:len(fields)-1], " ")
		return last, component + ": " + body
	}
	return "debug", line
}
