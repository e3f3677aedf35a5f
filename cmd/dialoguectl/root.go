package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dialoguetree/internal/config"
	"dialoguetree/internal/editor"
	"dialoguetree/internal/graph"
	"dialoguetree/internal/localslot"
	"dialoguetree/internal/logging"
	"dialoguetree/internal/persistence"
	"dialoguetree/internal/remote"
	"dialoguetree/internal/ui"
)

var version = "0.1.0"

// app is the per-invocation editor wiring shared by every subcommand
type app struct {
	verbose bool

	cfg     *config.Config
	logger  *zap.Logger
	slot    *localslot.Store
	gateway *persistence.Gateway
	session *editor.Session

	mu      sync.Mutex
	notices []persistence.Notice
}

func (a *app) notify(n persistence.Notice) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notices = append(a.notices, n)
}

// flags shared by every command
type globalFlags struct {
	configPath string
	remoteURL  string
	slotPath   string
	logLevel   string
	timeout    time.Duration
	verbose    bool
}

// execute runs one command line. Whatever the command did to the graph is
// synced to the store before it returns, even when the command failed
// half way.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.shutdown()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if a.session != nil {
		if syncErr := a.finish(ctx, stderr); err == nil {
			err = syncErr
		}
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	var gf globalFlags

	root := &cobra.Command{
		Use:   "dialoguectl",
		Short: "dialoguectl — author dialogue trees against a dialogue store",
		Long: ui.Brand.Sprint("dialoguectl") + " — edit dialogue graphs from the terminal\n" +
			ui.Subtle.Sprint("Every command loads the graph from the store, applies one change and syncs it back"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context(), gf)
		},
	}
	root.SetVersionTemplate("dialoguectl {{ .Version }}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&gf.configPath, "config", "", "config file (default: discovered)")
	pf.StringVar(&gf.remoteURL, "remote", "", "dialogue store URL")
	pf.StringVar(&gf.slotPath, "slot", "", "local backup database")
	pf.StringVar(&gf.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.DurationVar(&gf.timeout, "timeout", 0, "remote request timeout")
	pf.BoolVarP(&gf.verbose, "verbose", "v", false, "print sync queue statistics")

	root.AddCommand(
		nodesCmd(a),
		connectCmd(a),
		disconnectCmd(a),
		elementsCmd(a),
		exportCmd(a),
		importCmd(a),
		backupCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context, gf globalFlags) error {
	a.verbose = gf.verbose
	var err error
	if gf.configPath != "" {
		a.cfg, _, err = config.LoadFromPath(gf.configPath)
	} else {
		a.cfg, _, err = config.Load()
	}
	if err != nil {
		return err
	}
	cc := &a.cfg.Client
	if gf.remoteURL != "" {
		cc.RemoteURL = gf.remoteURL
	}
	if gf.slotPath != "" {
		cc.SlotPath = gf.slotPath
	}
	if gf.timeout > 0 {
		cc.Timeout = gf.timeout
	}
	if gf.logLevel != "" {
		a.cfg.Log.Level = gf.logLevel
	}

	// The CLI only logs warnings unless asked otherwise
	level := a.cfg.Log.Level
	if gf.logLevel == "" && level == "info" {
		level = "warn"
	}
	if a.logger, err = logging.New(level, a.cfg.Log.Format); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cc.SlotPath), 0755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	if a.slot, err = localslot.Open(cc.SlotPath); err != nil {
		return err
	}

	client := remote.New(cc.RemoteURL, cc.Timeout, cc.Breaker, remote.WithLogger(a.logger))
	store := graph.New(graph.WithLogger(a.logger))
	a.gateway = persistence.New(store, client, a.slot,
		persistence.WithLogger(a.logger),
		persistence.WithSlotKey(cc.SlotKey),
		persistence.WithNotifier(persistence.NotifierFunc(a.notify)),
	)

	if err := a.gateway.Hydrate(ctx); err != nil {
		return fmt.Errorf("load graph from %s: %w", cc.RemoteURL, err)
	}
	if err := a.gateway.Start(ctx); err != nil {
		return err
	}
	a.session = editor.NewSession(store, a.gateway, editor.WithLogger(a.logger))
	return nil
}

// finish drains the sync queue and reports anything the store refused.
// Connections skipped while loading are warnings; refused changes fail
// the command.
func (a *app) finish(ctx context.Context, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Client.Timeout*4)
	defer cancel()
	if err := a.gateway.Flush(ctx); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if a.verbose {
		st := a.gateway.Stats()
		ui.Subtle.Fprintf(w, "  sync: %d submitted, %d coalesced, %d processed, %d failed, %d dropped\n",
			st.Submitted, st.Coalesced, st.Processed, st.Failed, st.Dropped)
	}

	a.mu.Lock()
	notices := a.notices
	a.mu.Unlock()

	failed, skipped := 0, 0
	for _, n := range notices {
		ui.Warn.Fprintf(w, "  %s %s\n", ui.WarnIcon(), n)
		if n.Skipped != nil {
			skipped++
			continue
		}
		failed++
	}
	if skipped > 0 {
		ui.Subtle.Fprintf(w, "  %d stored connection(s) point at deleted nodes; `dialoguectl export` then `import` rewrites the store without them\n", skipped)
	}
	if failed > 0 {
		return fmt.Errorf("%d change(s) were kept locally but not saved to the store", failed)
	}
	return nil
}

func (a *app) shutdown() {
	if a.gateway != nil {
		a.gateway.Stop()
		a.gateway = nil
	}
	if a.slot != nil {
		a.slot.Close()
		a.slot = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
