// Package fava manages a single Fava subprocess serving every discovered
// user ledger as a web report viewer.
package fava

import (
	"log/slog"
	"os/exec"
	"reflect"
	"sync"
	"time"

	"github.com/shunichi-ikebuchi/beancount-bot/pkg/pathutil"
)

const stopTimeout = 5 * time.Second

// Manager supervises the Fava process. Start and Refresh restart it only
// when the set of ledger files changed; a missing fava binary disables the
// viewer without failing the bot.
type Manager struct {
	paths  *pathutil.PathResolver
	binary string
	host   string
	port   string
	logger *slog.Logger

	mu             sync.Mutex
	cmd            *exec.Cmd
	done           chan struct{}
	currentLedgers []string
}

// Config represents the configuration for the Fava manager.
type Config struct {
	Binary string // Default: fava
	Host   string
	Port   string
}

// NewManager creates a Manager over the given path resolver.
func NewManager(paths *pathutil.PathResolver, config Config, logger *slog.Logger) *Manager {
	binary := config.Binary
	if binary == "" {
		binary = "fava"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		paths:  paths,
		binary: binary,
		host:   config.Host,
		port:   config.Port,
		logger: logger,
	}
}

// Start launches Fava over the currently discovered ledgers.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restartIfNeeded()
}

// Refresh restarts Fava if the ledger set changed since the last start.
// Call it after a commit may have created a new user's ledger file.
func (m *Manager) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restartIfNeeded()
}

// Stop terminates the Fava process if one is running.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopProcess()
}

func (m *Manager) restartIfNeeded() {
	if err := m.paths.EnsureDir(m.paths.LedgerRoot()); err != nil {
		m.logger.Error("failed to ensure ledger root", "error", err)
		return
	}

	ledgers, err := m.paths.DiscoverLedgers()
	if err != nil {
		m.logger.Error("failed to discover ledgers", "error", err)
		return
	}
	if len(ledgers) == 0 {
		m.stopProcess()
		m.currentLedgers = nil
		return
	}

	if reflect.DeepEqual(ledgers, m.currentLedgers) && m.running() {
		return
	}

	m.stopProcess()

	args := []string{"--host", m.host, "--port", m.port}
	args = append(args, ledgers...)
	cmd := exec.Command(m.binary, args...)
	cmd.Dir = m.paths.LedgerRoot()

	m.logger.Info("starting fava", "host", m.host, "port", m.port, "ledgers", len(ledgers))
	if err := cmd.Start(); err != nil {
		m.logger.Error("could not start fava; install it to enable the web UI", "error", err)
		m.currentLedgers = nil
		return
	}

	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()

	m.cmd = cmd
	m.done = done
	m.currentLedgers = ledgers
}

func (m *Manager) running() bool {
	if m.cmd == nil {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

func (m *Manager) stopProcess() {
	if m.cmd == nil {
		return
	}

	if m.running() {
		m.logger.Info("stopping fava", "pid", m.cmd.Process.Pid)
		if err := m.cmd.Process.Signal(terminateSignal); err != nil {
			m.logger.Warn("failed to signal fava", "error", err)
		}
		select {
		case <-m.done:
		case <-time.After(stopTimeout):
			m.logger.Warn("fava did not exit gracefully; killing")
			m.cmd.Process.Kill()
			<-m.done
		}
	}

	m.cmd = nil
	m.done = nil
}
