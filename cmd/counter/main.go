package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	cfgpkg "github.com/Catorpilor/counter/internal/config"
	"github.com/Catorpilor/counter/internal/console"
	logpkg "github.com/Catorpilor/counter/internal/logging"
	"github.com/Catorpilor/counter/internal/metrics"
	"github.com/Catorpilor/counter/internal/program"
	rpcpkg "github.com/Catorpilor/counter/internal/rpcclient"
	"github.com/Catorpilor/counter/internal/session"
	"github.com/Catorpilor/counter/internal/view"
	"github.com/Catorpilor/counter/internal/wallet"
)

func main() {
	var (
		configPath string
		rpcURL     string
		cluster    string
		yes        bool
		exec       string
	)

	flag.StringVar(&configPath, "config", "configs/config.yaml", "Path to config file")
	flag.StringVar(&rpcURL, "rpc-url", "", "Override RPC URL")
	flag.StringVar(&cluster, "cluster", "", "Override cluster (devnet|testnet|mainnet-beta|localnet)")
	flag.BoolVar(&yes, "yes", false, "Approve the wallet connection without asking")
	flag.StringVar(&exec, "exec", "", "Comma separated actions to run, then exit (e.g. connect,create,increment)")
	flag.Parse()

	cfg, err := cfgpkg.Load(configPath)
	if err != nil {
		fatalf("load config: %v", err)
	}
	logpkg.Setup(cfg.Logging)
	if rpcURL != "" {
		cfg.RPC.URL = rpcURL
	}
	if cluster != "" {
		cfg.RPC.Cluster = cluster
	}
	if yes {
		cfg.Wallet.AutoApprove = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	idlBytes := program.CounterIDL
	if cfg.Program.IDLPath != "" {
		if idlBytes, err = os.ReadFile(cfg.Program.IDLPath); err != nil {
			fatalf("read idl: %v", err)
		}
	}

	reg := prometheus.NewRegistry()
	rpcMetrics := metrics.NewRPC(reg)
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg); err != nil {
				slog.Error("metrics server", "err", err)
			}
		}()
	}

	// The approval prompt and the action loop share one stdin reader.
	lines := console.NewReader(os.Stdin)

	// Wallet
	provider, err := wallet.FromConfig(cfg.Wallet)
	if err != nil {
		fatalf("load wallet: %v", err)
	}
	var prompt wallet.Prompter = wallet.NewLinePrompt(lines, os.Stdout)
	if cfg.Wallet.AutoApprove {
		prompt = wallet.AutoApprove{}
	}
	provider = wallet.Approving(provider, prompt)

	// Each connect gets a fresh network handle and program binding.
	newBinding := func(signer wallet.Signer) (session.Binding, error) {
		rpc, err := rpcpkg.New(cfg.RPC, rpcMetrics)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", program.ErrInitialization, err)
		}
		slog.Debug("rpc endpoint", "url", rpc.Endpoint, "commitment", string(rpc.Commitment))
		return program.Init(rpc, signer, cfg.Program.ProgramID, idlBytes, program.Options{
			PriorityMicrolamports: cfg.Fees.PriorityMicrolamports,
			ComputeUnitLimit:      cfg.Fees.ComputeUnitLimit,
			MaxRetries:            uint(cfg.MaxRetries),
			ConfirmTimeout:        cfg.Session.ConfirmTimeout,
			PollInterval:          cfg.Session.PollInterval,
			PollJitterPct:         cfg.Session.PollJitterPct,
		})
	}

	alert := session.AlertFunc(func(msg string) { fmt.Fprintf(os.Stdout, "\n⚠ %s\n", msg) })
	ctrl := session.NewController(provider, newBinding, alert, session.WithTimeout(cfg.Session.ActionTimeout))

	render := func() { _ = view.Write(os.Stdout, view.Render(ctrl.Snapshot())) }

	if exec != "" {
		render()
		for _, name := range strings.Split(exec, ",") {
			action, err := session.ParseAction(name)
			if err != nil {
				fatalf("%v", err)
			}
			if err := ctrl.Dispatch(ctx, action); err != nil {
				render()
				os.Exit(1)
			}
			render()
		}
		return
	}

	if err := loop(ctx, ctrl, lines, render); err != nil {
		fatalf("%v", err)
	}
}

// loop reads one action per line until EOF, "quit" or a signal.
func loop(ctx context.Context, ctrl *session.Controller, lines *console.Reader, render func()) error {
	for {
		render()
		fmt.Fprint(os.Stdout, "> ")
		line, err := lines.ReadLine(ctx)
		switch {
		case ctx.Err() != nil:
			fmt.Fprintln(os.Stdout)
			slog.Info("shutting down")
			return nil
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "quit", "exit", "q":
			return nil
		}
		action, err := session.ParseAction(line)
		if err != nil {
			fmt.Fprintln(os.Stdout, err)
			continue
		}
		if err := ctrl.Dispatch(ctx, action); err != nil {
			slog.Debug("action failed", "action", string(action), "err", err)
		}
	}
}

func fatalf(msg string, args ...any) {
	slog.Error(fmt.Sprintf(msg, args...))
	os.Exit(1)
}
