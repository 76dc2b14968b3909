package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/cardroom/dealerd/internal/randutil"
	"github.com/cardroom/dealerd/internal/server"
)

var CLI struct {
	Config      string `short:"c" default:"dealerd.hcl" help:"Path to HCL configuration file"`
	Addr        string `short:"a" help:"TCP listen address (overrides config)"`
	WSAddr      string `help:"WebSocket listen address (overrides config)"`
	MetricsAddr string `help:"Prometheus /metrics listen address (overrides config)"`
	Players     int    `short:"p" help:"Required player count (overrides config)"`
	Hands       int    `short:"n" help:"Number of hands to play (overrides config)"`
	Blind       int    `help:"Big blind amount (overrides config)"`
	Seed        int64  `help:"Deterministic shuffle seed (0 = time-based)"`
	LogLevel    string `short:"l" help:"Log level (overrides config)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		kctx.Exit(1)
	}
	applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Session.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("session failed", "error", err)
		kctx.Exit(1)
	}
}

func applyOverrides(cfg *server.Config) {
	if CLI.Addr != "" {
		cfg.Session.ListenAddr = CLI.Addr
	}
	if CLI.WSAddr != "" {
		cfg.Session.WSListenAddr = CLI.WSAddr
	}
	if CLI.MetricsAddr != "" {
		cfg.Session.MetricsAddr = CLI.MetricsAddr
	}
	if CLI.Players != 0 {
		cfg.Session.Players = CLI.Players
	}
	if CLI.Hands != 0 {
		cfg.Session.Hands = CLI.Hands
	}
	if CLI.Blind != 0 {
		cfg.Session.Blind = CLI.Blind
	}
	if CLI.LogLevel != "" {
		cfg.Session.LogLevel = CLI.LogLevel
	}
}

func run(cfg *server.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	metrics := server.NewMetrics(registry)

	writer, err := server.NewHandLogWriter(cfg.Session.OutputDir, logger)
	if err != nil {
		return err
	}

	seed := CLI.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	opts := []server.SessionOption{
		server.WithMetrics(metrics),
		server.WithRNG(randutil.New(seed)),
		server.WithHandLogWriter(writer),
		server.WithStatusFile(server.NewStatusFile(cfg.Session.StatusFile)),
	}
	if cfg.Session.HistoryDir != "" {
		history, err := server.NewHistoryWriter(cfg.Session.HistoryDir, logger)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithHistoryWriter(history))
	}

	session := server.NewSession(cfg.Session, logger, opts...)

	ln, err := net.Listen("tcp", cfg.Session.ListenAddr)
	if err != nil {
		return fmt.Errorf("binding listener: %w", err)
	}
	logger.Info("listening", "addr", cfg.Session.ListenAddr,
		"players", cfg.Session.Players, "hands", cfg.Session.Hands)

	g, ctx := errgroup.WithContext(ctx)
	playCtx, endSession := context.WithCancel(ctx)

	g.Go(func() error {
		// The accept loop runs for the whole session so late arrivals can
		// be refused with a reason instead of hanging.
		return session.Accept(playCtx, ln)
	})

	g.Go(func() error {
		defer endSession()
		return session.Play(playCtx)
	})

	if cfg.Session.WSListenAddr != "" {
		g.Go(func() error {
			return serveWS(playCtx, cfg.Session.WSListenAddr, session, logger)
		})
	}
	if cfg.Session.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(playCtx, cfg.Session.MetricsAddr, registry, logger)
		})
	}

	return g.Wait()
}

// serveWS accepts WebSocket clients: one text frame per wire line, fed
// through the same session join path as TCP.
func serveWS(ctx context.Context, addr string, session *server.Session, logger *log.Logger) error {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Debug("websocket upgrade failed", "error", err)
			return
		}
		if _, err := session.Join(server.NewWSTransport(conn)); err != nil {
			logger.Debug("websocket connection refused", "error", err)
		}
	})
	return serveHTTP(ctx, addr, mux, logger.With("server", "ws"))
}

func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry, logger *log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return serveHTTP(ctx, addr, mux, logger.With("server", "metrics"))
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
