package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ludoteca/config"
	"ludoteca/lending"
	"ludoteca/logging"
	"ludoteca/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type flags struct {
	configPath string
	dataDir    string
	store      string
	debug      bool
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:          "ludoteca",
		Short:        "Ludoteca - track board game loans, due dates and fines",
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := openApp(f, os.Stdout)
			if err != nil {
				return err
			}
			defer a.Close()

			interactive := term.IsTerminal(int(os.Stdin.Fd()))
			runMenu(a, os.Stdin, interactive)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&f.configPath, "config", "c", "ludoteca.yaml", "config file (optional)")
	cmd.PersistentFlags().StringVar(&f.dataDir, "data-dir", "", "directory for state, report and log files")
	cmd.PersistentFlags().StringVar(&f.store, "store", "", "state backend: file or sqlite")
	cmd.PersistentFlags().BoolVar(&f.debug, "debug", false, "enable verbose logging")

	cmd.AddCommand(reportCmd(&f), gamesCmd(&f))
	return cmd
}

func reportCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Write the lending report and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := openApp(*f, os.Stdout)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.writeReport(); err != nil {
				a.elog.Record("report.write_failed", err)
				return err
			}
			return nil
		},
	}
}

func gamesCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List registered games",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := openApp(*f, os.Stdout)
			if err != nil {
				return err
			}
			defer a.Close()
			handleListGames(a)
			return nil
		},
	}
}

// reportTarget receives the rendered report. It is always a plain file
// location, whatever backend holds the ledger state.
type reportTarget interface {
	storage.Sink
	Location(name string) string
}

// app bundles everything one session needs. There is exactly one ledger and
// one error log per process.
type app struct {
	cfg        config.Config
	store      storage.Store
	reportSink reportTarget
	ledger     *lending.Ledger
	log        *slog.Logger
	elog       *logging.ErrorLog
	out        io.Writer
	now        func() time.Time

	closers []func() error
}

func openApp(f flags, out io.Writer) (*app, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.dataDir != "" {
		cfg.DataDir = f.dataDir
	}
	if f.store != "" {
		cfg.Store = f.store
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	log, closeLog, err := logging.Setup(logging.Config{
		Path:       cfg.LogPath(),
		Level:      cfg.Log.Level,
		Debug:      f.debug,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: diagnostic log unavailable: %v\n", err)
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		elog:    logging.NewErrorLog(log),
		out:     out,
		now:     time.Now,
		closers: []func() error{closeLog},
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		a.elog.Record("store.open", err)
		a.Close()
		return nil, err
	}
	a.store = st
	a.closers = append(a.closers, closeStore)

	rs, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		a.elog.Record("report.open", err)
		a.Close()
		return nil, err
	}
	a.reportSink = rs

	a.loadLedger()
	return a, nil
}

func openStore(cfg config.Config) (storage.Store, func() error, error) {
	switch strings.ToLower(cfg.Store) {
	case config.StoreSQLite:
		s, err := storage.NewSQLiteStore(cfg.SQLitePath())
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := storage.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	}
}

func (a *app) ledgerOptions() []lending.Option {
	// Validated by config.Load.
	rate, _ := a.cfg.FineRate()
	return []lending.Option{
		lending.WithDailyFineRate(rate),
		lending.WithDefaultGraceDays(a.cfg.Lending.GraceDays),
	}
}

// loadLedger restores saved state. A broken state file is logged and the
// session continues with an empty ledger.
func (a *app) loadLedger() {
	l, err := lending.Load(a.store, a.cfg.StateFile, a.ledgerOptions()...)
	if err != nil {
		fmt.Fprintf(a.out, "Failed to load saved data. See %s for details.\n", a.cfg.LogPath())
		a.elog.Record("ledger.load_failed", err)
		l = lending.NewLedger(a.ledgerOptions()...)
	}
	a.ledger = l
	a.log.Info("ledger.loaded",
		"games", len(l.ListGames()),
		"members", len(l.ListMembers()),
		"loans", len(l.ListLoans()))
}

func (a *app) save() error {
	if err := lending.Save(a.ledger, a.store, a.cfg.StateFile); err != nil {
		return err
	}
	a.log.Info("ledger.saved", "location", a.store.Location(a.cfg.StateFile))
	return nil
}

func (a *app) writeReport() error {
	if err := lending.WriteReport(a.ledger, a.reportSink, a.cfg.ReportFile, a.now()); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Report written to %s\n", a.reportSink.Location(a.cfg.ReportFile))
	return nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if a.closers[i] != nil {
			_ = a.closers[i]()
		}
	}
}
