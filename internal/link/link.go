// Package link reports and restores network connectivity for the lamp.
package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/sebhoos/iss-illumination/internal/clock"
	"github.com/sebhoos/iss-illumination/internal/metrics"
)

// Status is the connectivity state of the network link.
type Status int

const (
	Disconnected Status = iota
	Connected
)

func (s Status) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Manager queries and restores the link.
type Manager interface {
	// Status reports the current link state.
	Status(ctx context.Context) Status
	// Reconnect blocks until the link is Connected, calling onAttempt with
	// the 1-based attempt number before each check. It only returns an
	// error when ctx is done.
	Reconnect(ctx context.Context, onAttempt func(attempt int)) error
}

// DialFunc opens a connection, matching net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Config controls a ProbeManager.
type Config struct {
	// Interface is checked via sysfs operstate when non-empty.
	Interface string
	// ProbeAddr is dialled over TCP to confirm upstream reachability.
	ProbeAddr       string
	DialTimeout     time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// SysfsRoot defaults to /sys/class/net.
	SysfsRoot string
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		ProbeAddr:       "api.open-notify.org:80",
		DialTimeout:     3 * time.Second,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		SysfsRoot:       "/sys/class/net",
	}
}

// ProbeManager decides connectivity from the interface operstate and a TCP
// dial to a probe address.
type ProbeManager struct {
	cfg    Config
	dial   DialFunc
	clock  clock.Clock
	logger *slog.Logger
}

var _ Manager = (*ProbeManager)(nil)

// NewProbeManager creates a ProbeManager. A nil dial uses net.Dialer.
func NewProbeManager(cfg Config, dial DialFunc, clk clock.Clock, logger *slog.Logger) *ProbeManager {
	def := DefaultConfig()
	if cfg.ProbeAddr == "" {
		cfg.ProbeAddr = def.ProbeAddr
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = max(def.MaxInterval, cfg.InitialInterval)
	}
	if cfg.SysfsRoot == "" {
		cfg.SysfsRoot = def.SysfsRoot
	}
	if dial == nil {
		d := &net.Dialer{}
		dial = d.DialContext
	}
	return &ProbeManager{cfg: cfg, dial: dial, clock: clk, logger: logger}
}

// Status implements Manager.
func (m *ProbeManager) Status(ctx context.Context) Status {
	if err := m.probe(ctx); err != nil {
		m.logger.Debug("link probe failed", "component", "link", "error", err)
		metrics.SetLinkConnected(false)
		return Disconnected
	}
	metrics.SetLinkConnected(true)
	return Connected
}

func (m *ProbeManager) probe(ctx context.Context) error {
	if m.cfg.Interface != "" {
		state, err := m.operState()
		if err != nil {
			return err
		}
		if state != "up" {
			return fmt.Errorf("interface %s is %s", m.cfg.Interface, state)
		}
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
	defer cancel()

	conn, err := m.dial(dialCtx, "tcp", m.cfg.ProbeAddr)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", m.cfg.ProbeAddr, err)
	}
	return conn.Close()
}

func (m *ProbeManager) operState() (string, error) {
	path := filepath.Join(m.cfg.SysfsRoot, m.cfg.Interface, "operstate")
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("interface %s not found", m.cfg.Interface)
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// Reconnect implements Manager. There is no retry ceiling.
func (m *ProbeManager) Reconnect(ctx context.Context, onAttempt func(attempt int)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.cfg.InitialInterval
	b.MaxInterval = m.cfg.MaxInterval
	b.Reset()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if onAttempt != nil {
			onAttempt(attempt)
		}
		metrics.RecordReconnectAttempt()

		if m.Status(ctx) == Connected {
			m.logger.Info("link restored", "component", "link", "attempts", attempt)
			return nil
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			wait = m.cfg.MaxInterval
		}
		m.logger.Warn("link down, retrying",
			"component", "link",
			"attempt", attempt,
			"retry_in", wait.String(),
			"probe_addr", m.cfg.ProbeAddr,
		)
		if err := m.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}
