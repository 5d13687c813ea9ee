package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/pairomaniac/capture-stream/internal/logging"
)

// DefaultTailLines is how many stderr lines a Process keeps by default.
const DefaultTailLines = 5

// LogParser parses a log line and returns the log level and message.
// Used to extract structured log info from process output (vlc, etc.)
type LogParser func(line string) (level, msg string)

// Option configures a Process.
type Option func(*Process)

// WithTailLines sets how many trailing stderr lines are kept.
func WithTailLines(n int) Option {
	return func(p *Process) {
		p.tail = newTailBuffer(n)
	}
}

// WithTimeouts overrides the graceful shutdown and kill timeouts.
func WithTimeouts(graceful, kill time.Duration) Option {
	return func(p *Process) {
		p.gracefulTimeout = graceful
		p.killTimeout = kill
	}
}

// Process manages the lifecycle of a subprocess.
type Process struct {
	id              string
	args            []string
	cmd             *exec.Cmd
	logger          logging.Logger
	processLogger   logging.Logger // logger for process output (nil = use logger)
	logParser       LogParser      // parses process output for log level (nil = no parsing)
	tail            *tailBuffer
	gracefulTimeout time.Duration // timeout for graceful shutdown before force kill
	killTimeout     time.Duration // timeout after Kill() before giving up

	mu    sync.Mutex
	state State
}

// New creates a process for args[0] with the remaining args.
func New(id string, args []string, logger logging.Logger, opts ...Option) *Process {
	p := &Process{
		id:              id,
		args:            args,
		logger:          logger,
		tail:            newTailBuffer(DefaultTailLines),
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
		state:           StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Process) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// SetLogParser sets a custom logger and log parser for process output.
func (p *Process) SetLogParser(logger logging.Logger, parser LogParser) {
	p.processLogger = logger
	p.logParser = parser
}

// Tail returns the last stderr lines the process wrote.
func (p *Process) Tail() []string {
	return p.tail.snapshot()
}

// runningProcess holds channels for monitoring a running subprocess.
type runningProcess struct {
	processDone <-chan error
	outputDone  chan struct{} // receives twice, once per output stream
}

// startProcess starts the subprocess and returns channels for monitoring.
func (p *Process) startProcess() (*runningProcess, error) {
	if len(p.args) == 0 {
		return nil, errors.New("empty command")
	}

	p.cmd = exec.Command(p.args[0], p.args[1:]...)
	p.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := p.cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", p.args[0], err)
	}

	p.logger.Info("Process started", "id", p.id, "pid", p.cmd.Process.Pid, "command", p.args[0])
	p.logger.Debug("Process arguments", "id", p.id, "args", p.args[1:])

	outputDone := make(chan struct{}, 2)
	go func() {
		p.streamOutput(stdout, "stdout")
		outputDone <- struct{}{}
	}()
	go func() {
		p.streamOutput(stderr, "stderr")
		outputDone <- struct{}{}
	}()

	processDone := make(chan error, 1)
	go func() {
		processDone <- p.cmd.Wait()
	}()

	return &runningProcess{processDone: processDone, outputDone: outputDone}, nil
}

// waitOutputDone waits for both output streams to complete.
func (p *Process) waitOutputDone(outputDone <-chan struct{}) {
	<-outputDone
	<-outputDone
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return 128 + int(status.Signal())
		}
	}
	return 1
}

// Run starts the subprocess and blocks until it exits or ctx is cancelled.
// It returns the subprocess exit code. The error is
// non-nil only when the process could not be started.
func (p *Process) Run(ctx context.Context) (int, error) {
	rp, err := p.startProcess()
	if err != nil {
		p.setState(StateExited)
		p.logger.Error("Failed to start process", "id", p.id, "error", err)
		return 1, err
	}
	p.setState(StateRunning)
	defer p.setState(StateExited)
	defer p.waitOutputDone(rp.outputDone)

	select {
	case <-ctx.Done():
		p.logger.Info("Context cancelled, shutting down process", "id", p.id)
		p.sendStopSignal()
		return p.waitForExit(rp.processDone, p.gracefulTimeout), nil
	case processErr := <-rp.processDone:
		exitCode := exitCodeFromError(processErr)
		p.logger.Info("Process exited", "id", p.id, "exit_code", exitCode)
		return exitCode, nil
	}
}

// sendStopSignal sends SIGINT to the subprocess without waiting.
func (p *Process) sendStopSignal() {
	p.setState(StateStopping)
	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	p.logger.Info("Sending SIGINT to process", "pid", p.cmd.Process.Pid)
	if err := p.cmd.Process.Signal(syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("Failed to send SIGINT", "error", err)
	}
}

// waitForExit waits for the process to exit with a timeout, force-killing if needed.
func (p *Process) waitForExit(processDone <-chan error, timeout time.Duration) int {
	select {
	case err := <-processDone:
		return exitCodeFromError(err)
	case <-time.After(timeout):
		p.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", timeout)
		// Negative pid signals the whole process group set up by Setpgid.
		if err := syscall.Kill(-p.cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			p.logger.Error("Failed to kill process", "error", err)
		}
		select {
		case <-processDone:
		case <-time.After(p.killTimeout):
			p.logger.Error("Process did not exit after kill signal")
		}
		return 137
	}
}

// streamOutput streams output from the subprocess into the logger and, for
// stderr, the tail buffer.
func (p *Process) streamOutput(reader io.Reader, source string) {
	scanner := bufio.NewScanner(reader)

	logger := p.processLogger
	if logger == nil {
		logger = p.logger
	}

	for scanner.Scan() {
		line := scanner.Text()

		if source == "stderr" {
			p.tail.add(line)
		}

		level, msg := "debug", line
		if p.logParser != nil {
			level, msg = p.logParser(line)
		}

		switch level {
		case "fatal", "error":
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "info":
			logger.Info(msg)
		default:
			logger.Debug(msg)
		}
	}

	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading output", "source", source, "error", err)
	}
}
