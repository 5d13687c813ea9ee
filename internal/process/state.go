package process

import "sync"

// State represents the current state of a managed process.
type State string

// Process states.
const (
	StateIdle     State = "idle"     // Not running
	StateRunning  State = "running"  // Active
	StateStopping State = "stopping" // Being stopped
	StateExited   State = "exited"   // Finished or failed to start
)

// tailBuffer keeps the last n lines written to it.
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	size  int
}

func newTailBuffer(size int) *tailBuffer {
	return &tailBuffer{size: size}
}

func (b *tailBuffer) add(line string) {
	if b.size <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.lines) == b.size {
		copy(b.lines, b.lines[1:])
		b.lines = b.lines[:b.size-1]
	}
	b.lines = append(b.lines, line)
}

func (b *tailBuffer) snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}
