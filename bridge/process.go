package bridge

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// silentInitEnv suppresses the engine's startup banner so child output
	// never interferes with the harness. Startup is detected through the
	// health probe, never by parsing process output.
	silentInitEnv = "MANACORE_SILENT_INIT=1"

	startupCeiling   = 30 * time.Second
	startupInterval  = 1 * time.Second
	shutdownDeadline = 5 * time.Second
)

// ErrServerNotFound is returned when the gym-server entry point cannot be
// located relative to the working directory.
var ErrServerNotFound = errors.New("could not find gym-server entry point")

// Process owns the lifecycle of a child engine process bound to one
// host:port. Several workers may target the same address; only the first
// to observe it absent spawns the child, and only the spawner shuts it
// down on Close.
type Process struct {
	client     *Client
	port       int
	serverPath string
	runner     string
	cmd        *exec.Cmd
}

type ProcessOption func(p *Process)

// WithServerPath overrides entry-point auto-detection.
func WithServerPath(path string) ProcessOption {
	return func(p *Process) {
		if path != "" {
			p.serverPath = path
		}
	}
}

// WithRunner overrides the runtime binary used to launch the entry point.
func WithRunner(runner string) ProcessOption {
	return func(p *Process) {
		if runner != "" {
			p.runner = runner
		}
	}
}

func NewProcess(client *Client, port int, options ...ProcessOption) *Process {
	p := &Process{
		client: client,
		port:   port,
		runner: "bun",
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// FindServerPath locates the gym-server entry point by walking from the
// working directory up through its ancestors.
func FindServerPath() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "packages", "gym-server", "src", "index.ts")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrServerNotFound
		}
		dir = parent
	}
}

// EnsureRunning guarantees a live engine at the client's address. If the
// health probe already answers, it returns immediately without spawning.
// Otherwise it launches the child and polls the probe once per second up
// to the startup ceiling; missing the ceiling is fatal to the caller.
func (p *Process) EnsureRunning() error {
	if p.client.Healthy() {
		return nil
	}

	// The port may be mid-release from a previous run; give it a moment
	// before concluding nobody owns it.
	time.Sleep(startupInterval)
	if p.client.Healthy() {
		return nil
	}

	serverPath := p.serverPath
	if serverPath == "" {
		var err error
		serverPath, err = FindServerPath()
		if err != nil {
			return err
		}
		p.serverPath = serverPath
	}

	log.Info().Str("url", p.client.BaseURL()).Msg("starting engine server")

	cmd := exec.Command(p.runner, "run", serverPath, "--port", strconv.Itoa(p.port))
	cmd.Env = append(os.Environ(), silentInitEnv)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch engine server: %w", err)
	}
	p.cmd = cmd

	deadline := time.Now().Add(startupCeiling)
	for time.Now().Before(deadline) {
		if p.client.Healthy() {
			log.Info().Str("url", p.client.BaseURL()).Msg("engine server started")
			return nil
		}
		time.Sleep(startupInterval)
	}

	p.kill()
	p.cmd = nil
	return fmt.Errorf("engine server failed to become healthy within %s", startupCeiling)
}

// Owned reports whether this instance spawned the engine process.
func (p *Process) Owned() bool {
	return p.cmd != nil
}

// Close stops the engine if this instance started it: graceful signal
// first, force-kill after a bounded wait. A no-op for shared engines
// started elsewhere. Safe to call more than once.
func (p *Process) Close() {
	if p.cmd == nil {
		return
	}

	log.Info().Msg("stopping engine server")
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		p.kill()
		p.cmd = nil
		return
	}

	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(shutdownDeadline):
		p.kill()
		<-done
	}
	p.cmd = nil
}

func (p *Process) kill() {
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}
