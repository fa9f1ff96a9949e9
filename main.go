package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rjsadow/fixproxy/internal/audit"
	"github.com/rjsadow/fixproxy/internal/client"
	"github.com/rjsadow/fixproxy/internal/client/fixsession"
	"github.com/rjsadow/fixproxy/internal/client/jsonrpc"
	"github.com/rjsadow/fixproxy/internal/config"
	"github.com/rjsadow/fixproxy/internal/controller"
	"github.com/rjsadow/fixproxy/internal/crypto"
	"github.com/rjsadow/fixproxy/internal/server"
	"github.com/rjsadow/fixproxy/internal/shared"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "config.toml", "Path to the TOML config file")
	listenAddress := flag.String("listen-address", "", "Override the FIX listener bind address")
	listenPort := flag.Int("listen-port", 0, "Override the FIX listener port")
	jsonrpcAddress := flag.String("jsonrpc-address", "", "Override the JSON-RPC listener bind address")
	auditDSN := flag.String("audit-dsn", "", "Override the audit journal DSN")
	flag.Parse()

	cfg, err := config.LoadWithFlags(*configPath, config.Flags{
		ListenAddress:  *listenAddress,
		ListenPort:     *listenPort,
		JSONRPCAddress: *jsonrpcAddress,
		AuditDSN:       *auditDSN,
	})
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	symbols, err := shared.NewSymbolSet(cfg.Symbols)
	if err != nil {
		slog.Error("invalid symbol allow-list", "error", err)
		os.Exit(1)
	}

	validator, err := crypto.New(crypto.Mode(cfg.CryptoMode))
	if err != nil {
		slog.Error("invalid crypto_mode", "error", err)
		os.Exit(1)
	}

	sh := shared.New(symbols, validator)
	for _, u := range cfg.Users {
		if err := sh.AddUser(shared.User{
			Component:  u.Component,
			Username:   u.Username,
			Password:   u.Password,
			Accounts:   u.Accounts,
			StrategyID: u.StrategyID,
		}); err != nil {
			slog.Error("failed to register user", "username", u.Username, "error", err)
			os.Exit(1)
		}
	}

	rec := newAuditRecorder(cfg)
	if closer, ok := rec.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	servers := server.NewManager()
	clients := client.NewManager()
	ctrl := controller.New(sh, servers, clients, rec)

	for _, venue := range cfg.Venues {
		servers.Add(server.NewSession(venue, cfg, sh, ctrl, ctrl.Post))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fixListener := fixsession.NewListener(listenerAddr(cfg.ListenAddress, cfg.ListenPort), cfg, sh, ctrl, rec, ctrl.Post, clients.Register)
	jsonrpcListener := jsonrpc.NewListener(cfg.JSONRPCAddress, cfg, sh, ctrl, rec, ctrl.Post, clients.Register)

	go func() {
		if err := fixListener.Run(ctx); err != nil {
			slog.Error("FIX listener stopped", "error", err)
		}
	}()
	go func() {
		if err := jsonrpcListener.Run(ctx); err != nil {
			slog.Error("JSON-RPC listener stopped", "error", err)
		}
	}()

	slog.Info("fixproxy starting",
		"fix_listen", cfg.ListenAddress,
		"jsonrpc_listen", cfg.JSONRPCAddress,
		"venues", len(cfg.Venues),
	)

	ctrl.Run(ctx)

	fixListener.Close()
	jsonrpcListener.Close()
	slog.Info("fixproxy stopped")
}

func listenerAddr(address string, port int) string {
	if address == "" {
		address = "0.0.0.0"
	}
	return net.JoinHostPort(address, strconv.Itoa(port))
}

// newAuditRecorder builds the audit.Recorder the controller and every
// client session use. An empty DSN disables persistence without
// disabling the in-memory event plumbing (NoopRecorder).
func newAuditRecorder(cfg *config.Config) audit.Recorder {
	if cfg.AuditDSN == "" {
		return audit.NoopRecorder{}
	}
	sqlRec, err := audit.Open(cfg.AuditDSN)
	if err != nil {
		slog.Error("failed to open audit journal, falling back to no-op", "dsn", cfg.AuditDSN, "error", err)
		return audit.NoopRecorder{}
	}
	return sqlRec
}
