package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"ludoteca/config"
	"ludoteca/logging"
	"ludoteca/storage"
)

var testNow = time.Date(2024, 1, 20, 10, 30, 0, 0, time.Local)

func newTestApp(t *testing.T, dir string) (*app, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = dir

	st, err := storage.NewFileStore(dir)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	var out bytes.Buffer
	a := &app{
		cfg:        cfg,
		store:      st,
		reportSink: st,
		log:        logging.Discard(),
		elog:       logging.NewErrorLog(logging.Discard()),
		out:        &out,
		now:        func() time.Time { return testNow },
	}
	a.loadLedger()
	return a, &out
}

func TestMenuLendingScenario(t *testing.T) {
	dir := t.TempDir()
	a, out := newTestApp(t, dir)

	script := strings.Join([]string{
		"1", "Chess", "Strategy",
		"2", "Ana", "",
		"4", "1", "1", "2024-01-01", "",
		"4", "1", "1", "", "",
		"5", "1", "2024-01-10", "3",
		"5", "1", "2024-01-10", "4",
		"6",
		"0",
	}, "\n") + "\n"
	runMenu(a, strings.NewReader(script), false)

	got := out.String()
	for _, want := range []string{
		"Game registered: #1 - Chess (Strategy)",
		"Member registered: #1 - Ana",
		"Loan created: #1 - due 2024-01-08",
		"Could not lend game: game 1 is already on loan",
		"Fine: 4.00 (days late: 2)",
		"Could not return game: insufficient payment, fine due is 4.00",
		"Return recorded. Fine charged: 4.00",
		"Report written to",
		"Exiting... data saved.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}

	report, err := os.ReadFile(filepath.Join(dir, "report.txt"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	for _, want := range []string{
		"Report - 2024-01-20 10:30:00",
		"=== Games ===\n#1 - Chess - Category: Strategy - On loan: false",
		"=== Active loans ===",
		"=== Return history ===\nLoan #1 - Game: Chess - Member: Ana - Returned: 2024-01-10 - Fine: 4.00",
	} {
		if !strings.Contains(string(report), want) {
			t.Errorf("report missing %q\n%s", want, report)
		}
	}

	reloaded, _ := newTestApp(t, dir)
	loans := reloaded.ledger.ReturnedLoans()
	if len(loans) != 1 || loans[0].FinePaid.StringFixed(2) != "4.00" {
		t.Fatalf("returned loan not persisted: %+v", loans)
	}
	if g, _ := reloaded.ledger.Game(1); g.OnLoan {
		t.Fatalf("game should be available after reload")
	}
}

func TestMenuRejectsBadInput(t *testing.T) {
	a, out := newTestApp(t, t.TempDir())

	script := "42\n4\nabc\n5\n1\nyesterday\n1\n\n\n0\n"
	runMenu(a, strings.NewReader(script), false)

	got := out.String()
	for _, want := range []string{
		"Invalid option.",
		"Invalid id: abc",
		"Invalid date: yesterday",
		"Could not register game: game name cannot be empty",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

func TestMenuSavesOnEndOfInput(t *testing.T) {
	dir := t.TempDir()
	a, out := newTestApp(t, dir)

	runMenu(a, strings.NewReader("2\nBruno\nbruno@example.com\n"), false)
	if !strings.Contains(out.String(), "Exiting... data saved.") {
		t.Fatalf("expected save on EOF:\n%s", out.String())
	}

	reloaded, _ := newTestApp(t, dir)
	if name, ok := reloaded.ledger.MemberName(1); !ok || name != "Bruno" {
		t.Fatalf("member not persisted, got %q", name)
	}
}

func TestLoadFailureStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	st, err := storage.NewFileStore(dir)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := st.Write("library.json", []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	a, out := newTestApp(t, dir)
	if !strings.Contains(out.String(), "Failed to load saved data") {
		t.Fatalf("expected load failure notice:\n%s", out.String())
	}
	if len(a.ledger.ListGames()) != 0 {
		t.Fatalf("expected empty ledger")
	}
	if g, err := a.ledger.RegisterGame("Chess", ""); err != nil || g.ID != 1 {
		t.Fatalf("ledger unusable after load failure: %+v %v", g, err)
	}
}

func TestParseDate(t *testing.T) {
	if d, err := parseDate("", testNow); err != nil || !d.Equal(testNow) {
		t.Fatalf("blank should mean now, got %v %v", d, err)
	}
	d, err := parseDate("2024-02-29", testNow)
	if err != nil || d.Month() != time.February || d.Day() != 29 {
		t.Fatalf("unexpected %v %v", d, err)
	}
	if _, err := parseDate("29/02/2024", testNow); err == nil {
		t.Fatalf("expected error for wrong layout")
	}
}

type brokenSink struct{}

func (brokenSink) Write(string, []byte) error { return errors.New("disk full") }
func (brokenSink) Location(name string) string { return "broken/" + name }

func TestMenuReportFailureIsShown(t *testing.T) {
	a, out := newTestApp(t, t.TempDir())
	a.reportSink = brokenSink{}

	runMenu(a, strings.NewReader("6\n0\n"), false)

	got := out.String()
	if !strings.Contains(got, "Could not write report: storage failure") {
		t.Fatalf("report failure not shown:\n%s", got)
	}
	if strings.Contains(got, "Report written to") {
		t.Fatalf("failed report announced as written:\n%s", got)
	}
}

func TestReportIsPlainFileWithSQLiteStore(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	a, err := openApp(flags{dataDir: dir, store: config.StoreSQLite}, &out)
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	defer a.Close()

	if _, err := a.ledger.RegisterGame("Xadrez", "Clássico"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := a.writeReport(); err != nil {
		t.Fatalf("write report: %v", err)
	}

	path := filepath.Join(dir, "report.txt")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report is not a file on disk: %v", err)
	}
	if !strings.Contains(string(b), "#1 - Xadrez - Category: Clássico") {
		t.Fatalf("unexpected report:\n%s", b)
	}
	if !strings.Contains(out.String(), "Report written to "+path) {
		t.Fatalf("wrong report location:\n%s", out.String())
	}
}

func TestTruncateStringKeepsRunesWhole(t *testing.T) {
	got := truncateString("Xadrezó Clássico Brasileiro", 10)
	if got != "Xadrezó..." || !utf8.ValidString(got) {
		t.Fatalf("got %q", got)
	}
	if got := truncateString("Jogo", 10); got != "Jogo" {
		t.Fatalf("short names must be untouched, got %q", got)
	}
}
