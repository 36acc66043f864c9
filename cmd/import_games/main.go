// Command import_games bulk-registers games from a CSV file of name,category
// rows into the saved ledger.
package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ludoteca/config"
	"ludoteca/lending"
	"ludoteca/logging"
	"ludoteca/storage"
)

func main() {
	if err := newImportCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	var configPath, dataDir, store string

	cmd := &cobra.Command{
		Use:          "import_games <file.csv>",
		Short:        "Register every game listed in a name,category CSV file",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if store != "" {
				cfg.Store = store
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			log, closeLog, err := logging.Setup(logging.Config{
				Path:       cfg.LogPath(),
				Level:      cfg.Log.Level,
				MaxSizeMB:  cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
				MaxAgeDays: cfg.Log.MaxAgeDays,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: diagnostic log unavailable: %v\n", err)
			}
			defer closeLog()

			return run(cfg, args[0], cmd.OutOrStdout(), logging.NewErrorLog(log))
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "ludoteca.yaml", "config file (optional)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding the saved state")
	cmd.Flags().StringVar(&store, "store", "", "state backend: file or sqlite")
	return cmd
}

// run imports csvPath into the configured store. Failures that abort the
// import are recorded in elog before being returned.
func run(cfg config.Config, csvPath string, out io.Writer, elog *logging.ErrorLog) error {
	st, closeStore, err := openStore(cfg)
	if err != nil {
		elog.Record("store.open", err)
		return err
	}
	defer closeStore()

	rate, err := cfg.FineRate()
	if err != nil {
		return err
	}
	l, err := lending.Load(st, cfg.StateFile,
		lending.WithDailyFineRate(rate),
		lending.WithDefaultGraceDays(cfg.Lending.GraceDays))
	if err != nil {
		elog.Record("ledger.load_failed", err)
		return fmt.Errorf("refusing to import over unreadable state: %w", err)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(out, "Importing games from %s...\n", csvPath)
	imported, failed, err := importGames(l, f, out)
	if err != nil {
		elog.Record("import.read_failed", err)
		return err
	}

	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d games\n", imported)
	fmt.Fprintf(out, "Errors: %d\n", failed)

	if imported == 0 {
		return nil
	}
	if err := lending.Save(l, st, cfg.StateFile); err != nil {
		elog.Record("ledger.save_failed", err)
		return err
	}
	fmt.Fprintf(out, "Saved to %s\n", st.Location(cfg.StateFile))
	return nil
}

func openStore(cfg config.Config) (storage.Store, func() error, error) {
	if strings.EqualFold(cfg.Store, config.StoreSQLite) {
		s, err := storage.NewSQLiteStore(cfg.SQLitePath())
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	s, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return s, func() error { return nil }, nil
}

// importGames registers one game per record. A first record of exactly
// "name,category" is treated as a header. Rejected rows are reported and
// skipped; only a malformed CSV stream aborts the import.
func importGames(l *lending.Ledger, r io.Reader, out io.Writer) (imported, failed int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return imported, failed, nil
		}
		if err != nil {
			return imported, failed, fmt.Errorf("read csv: %w", err)
		}
		if line == 1 && isHeader(rec) {
			continue
		}

		name := rec[0]
		category := ""
		if len(rec) > 1 {
			category = rec[1]
		}

		fmt.Fprintf(out, "Importing: %s... ", name)
		g, err := l.RegisterGame(name, category)
		if err != nil {
			fmt.Fprintf(out, "ERROR (%s) - line %d: %v\n", lending.KindOf(err), line, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "SUCCESS (ID: %d)\n", g.ID)
		imported++
	}
}

func isHeader(rec []string) bool {
	return len(rec) >= 2 &&
		strings.EqualFold(strings.TrimSpace(rec[0]), "name") &&
		strings.EqualFold(strings.TrimSpace(rec[1]), "category")
}
