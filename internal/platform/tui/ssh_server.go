package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/robot-arena/internal/arena"
	"github.com/vovakirdan/robot-arena/internal/registry"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23234").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.arena/host_key.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	// Agents play a session's match unless the ssh command names two.
	Agents [2]string
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23234",
		IdleTimeout: 30 * time.Minute,
		Agents:      [2]string{"hunter", "kamikaze"},
	}
}

// SSHServer serves the match viewer over SSH. Every session watches a
// fresh match started through the coordinator; `ssh host random hunter`
// picks the agents.
type SSHServer struct {
	config SSHServerConfig
	server *ssh.Server
	coord  *arena.Coordinator
	logger *log.Logger
}

// NewSSHServer creates a new SSH server with the given configuration.
func NewSSHServer(cfg SSHServerConfig, coord *arena.Coordinator, logger *log.Logger) (*SSHServer, error) {
	srv := &SSHServer{
		config: cfg,
		coord:  coord,
		logger: logger,
	}

	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", err)
		}
		hostKeyPath = filepath.Join(home, ".arena", "host_key")
	}
	if err := os.MkdirAll(filepath.Dir(hostKeyPath), 0o700); err != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", err)
	}

	server, err := wish.NewServer(
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// sessionAgents returns the agents named by the ssh command, or the
// configured defaults.
func (s *SSHServer) sessionAgents(command []string) ([2]string, error) {
	if len(command) == 0 {
		return s.config.Agents, nil
	}
	if len(command) != 2 {
		return [2]string{}, fmt.Errorf("expected two agent names, got %d", len(command))
	}
	for _, id := range command {
		if !registry.Exists(id) {
			return [2]string{}, fmt.Errorf("unknown agent %q", id)
		}
	}
	return [2]string{command[0], command[1]}, nil
}

// teaHandler starts a match for each SSH session and returns a viewer on it.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	if _, _, ok := sshSession.Pty(); !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		wish.Fatalln(sshSession, "a terminal is required, try ssh -t")
		return nil, nil
	}

	agents, err := s.sessionAgents(sshSession.Command())
	if err != nil {
		wish.Fatalln(sshSession, err.Error())
		return nil, nil
	}
	match, err := s.coord.StartMatch(arena.MatchRequest{Agent1: agents[0], Agent2: agents[1]})
	if err != nil {
		s.logger.Error("cannot start match", "user", sshSession.User(), "error", err)
		wish.Fatalln(sshSession, err.Error())
		return nil, nil
	}
	s.logger.Info("session watching match", "user", sshSession.User(), "match", match.ID())

	// Nobody else watches a session's match; stop it with the session.
	go func() {
		select {
		case <-sshSession.Context().Done():
			match.Stop()
		case <-match.Done():
		}
	}()

	return NewModel(match.Game(), agents), []tea.ProgramOption{tea.WithAltScreen()}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *SSHServer) Run(ctx context.Context) error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down SSH server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}
