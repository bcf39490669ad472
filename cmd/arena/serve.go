package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/robot-arena/internal/arena"
	"github.com/vovakirdan/robot-arena/internal/platform/httpapi"
	"github.com/vovakirdan/robot-arena/internal/platform/tui"
	"github.com/vovakirdan/robot-arena/internal/storage"
)

var (
	flagHTTPAddr    string
	flagSSHAddr     string
	flagHostKey     string
	flagIdleTimeout int
	flagReplayDir   string
	flagRetention   time.Duration
	flagSSHAgents   []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and SSH viewer",
	Long: `Start the arena servers. Matches run in the background and are
shared by every client.

HTTP API:
  POST /matches                    start a match {"agent1","agent2","seed","max_turns"}
  GET  /matches                    list matches
  GET  /matches/{id}               match summary
  GET  /matches/{id}/turns/{turn}  turn records, waits until played
  GET  /matches/{id}/stream        websocket with every turn
  GET  /results                    stored results

SSH:
  Each connection watches a fresh match:
  ssh localhost -p 23234               default agents
  ssh -t localhost -p 23234 random hunter

Examples:
  arena serve
  arena serve --http :8080 --ssh ""           # HTTP only
  arena serve --replay-dir ./replays`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagHTTPAddr, "http", ":8080", "HTTP address (empty to disable)")
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", ":23234", "SSH server address (empty to disable)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (auto-generated if not specified)")
	serveCmd.Flags().IntVar(&flagIdleTimeout, "idle-timeout", 30, "Idle timeout in minutes before disconnecting")
	serveCmd.Flags().StringVar(&flagReplayDir, "replay-dir", "", "Write a replay of every match into this directory")
	serveCmd.Flags().DurationVar(&flagRetention, "retention", 10*time.Minute, "How long finished matches stay listed")
	serveCmd.Flags().StringSliceVar(&flagSSHAgents, "ssh-agents", []string{"hunter", "kamikaze"}, "Default agents for SSH sessions")
}

func runServe(_ *cobra.Command, _ []string) error {
	if flagHTTPAddr == "" && flagSSHAddr == "" {
		return errors.New("nothing to serve: both --http and --ssh are empty")
	}
	if len(flagSSHAgents) != 2 {
		return fmt.Errorf("--ssh-agents needs two agents, got %d", len(flagSSHAgents))
	}

	logger, err := newLogger("arena")
	if err != nil {
		return err
	}
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	// Results are optional; the servers run without them.
	store, err := storage.Open(flagDBPath)
	if err != nil {
		logger.Warn("could not open results database", "error", err)
		store = nil
	} else {
		defer store.Close()
	}

	cfg := arena.DefaultCoordinatorConfig()
	cfg.ReplayDir = flagReplayDir
	cfg.Retention = flagRetention
	coord := arena.NewCoordinator(cfg, settings, logger)
	var results httpapi.ResultStore
	if store != nil {
		coord.SetResultSaver(store)
		coord.SetTurnSaver(store)
		results = store
	}
	coord.Start()
	defer coord.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if flagHTTPAddr != "" {
		srv := &http.Server{
			Addr:              flagHTTPAddr,
			Handler:           httpapi.New(coord, results, logger).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("starting HTTP server", "address", flagHTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if flagSSHAddr != "" {
		sshCfg := tui.DefaultSSHServerConfig()
		sshCfg.Address = flagSSHAddr
		sshCfg.HostKeyPath = flagHostKey
		sshCfg.IdleTimeout = time.Duration(flagIdleTimeout) * time.Minute
		sshCfg.Agents = [2]string{flagSSHAgents[0], flagSSHAgents[1]}
		sshSrv, err := tui.NewSSHServer(sshCfg, coord, logger.WithPrefix("arena-ssh"))
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			return sshSrv.Run(ctx)
		})
	}

	fmt.Println("Press Ctrl+C to stop")
	err = g.Wait()
	logger.Info("servers stopped")
	return err
}
