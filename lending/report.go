package lending

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ludoteca/storage"
)

const dateLayout = "2006-01-02"

// View is the read-only slice of ledger state the report needs. *Ledger implements it.
type View interface {
	ListGames() []Game
	ActiveLoans() []Loan
	ReturnedLoans() []Loan
	GameName(id int64) (string, bool)
	MemberName(id int64) (string, bool)
}

var _ View = (*Ledger)(nil)

// RenderReport formats games, active loans and the return history as plain text.
// References that cannot be resolved are printed as their raw id.
func RenderReport(v View, at time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Report - %s\n", at.Format("2006-01-02 15:04:05"))

	sb.WriteString("=== Games ===\n")
	for _, g := range v.ListGames() {
		fmt.Fprintf(&sb, "#%d - %s - Category: %s - On loan: %t\n", g.ID, g.Name, g.Category, g.OnLoan)
	}

	sb.WriteString("\n=== Active loans ===\n")
	for _, ln := range v.ActiveLoans() {
		fmt.Fprintf(&sb, "Loan #%d - Game: %s - Member: %s - Loaned: %s - Due: %s\n",
			ln.ID,
			nameOr(v.GameName, ln.GameID),
			nameOr(v.MemberName, ln.MemberID),
			ln.LoanDate.Format(dateLayout),
			ln.DueDate.Format(dateLayout))
	}

	sb.WriteString("\n=== Return history ===\n")
	for _, ln := range v.ReturnedLoans() {
		rd, _ := ln.ReturnDate()
		fmt.Fprintf(&sb, "Loan #%d - Game: %s - Member: %s - Returned: %s - Fine: %s\n",
			ln.ID,
			nameOr(v.GameName, ln.GameID),
			nameOr(v.MemberName, ln.MemberID),
			rd.Format(dateLayout),
			ln.FinePaid.StringFixed(2))
	}

	return sb.String()
}

// WriteReport renders the report and hands it to sink under name.
func WriteReport(v View, sink storage.Sink, name string, at time.Time) error {
	if err := sink.Write(name, []byte(RenderReport(v, at))); err != nil {
		return persistenceError("report.write", err)
	}
	return nil
}

func nameOr(lookup func(int64) (string, bool), id int64) string {
	if name, ok := lookup(id); ok {
		return name
	}
	return strconv.FormatInt(id, 10)
}
