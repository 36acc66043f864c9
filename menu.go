package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ludoteca/lending"
)

const dateLayout = "2006-01-02"

const menuText = `=== LUDOTECA ===
1 - Register game
2 - Register member
3 - List games
4 - Lend game
5 - Return game
6 - Generate report
7 - Save
8 - List members
9 - List active loans
0 - Save and exit`

// runMenu drives one interactive session until the user exits or input ends.
// The menu itself is only printed when a person is typing.
func runMenu(a *app, in io.Reader, interactive bool) {
	sc := bufio.NewScanner(in)

	for {
		if interactive {
			fmt.Fprintln(a.out, menuText)
		}
		fmt.Fprint(a.out, "Option: ")
		if !sc.Scan() {
			fmt.Fprintln(a.out)
			handleExit(a)
			return
		}

		switch strings.TrimSpace(sc.Text()) {
		case "1":
			handleRegisterGame(sc, a)
		case "2":
			handleRegisterMember(sc, a)
		case "3":
			handleListGames(a)
		case "4":
			handleLend(sc, a)
		case "5":
			handleReturn(sc, a)
		case "6":
			handleReport(a)
		case "7":
			handleSave(a)
		case "8":
			handleListMembers(a)
		case "9":
			handleListActiveLoans(a)
		case "0":
			handleExit(a)
			return
		case "":
		default:
			fmt.Fprintln(a.out, "Invalid option.")
		}
		fmt.Fprintln(a.out)
	}
}

// ------------------ Prompts ------------------

func prompt(sc *bufio.Scanner, a *app, label string) (string, bool) {
	fmt.Fprint(a.out, label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func promptID(sc *bufio.Scanner, a *app, label string) (int64, bool) {
	s, ok := prompt(sc, a, label)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fmt.Fprintf(a.out, "Invalid id: %s\n", s)
		return 0, false
	}
	return id, true
}

// promptDate accepts YYYY-MM-DD; blank means now.
func promptDate(sc *bufio.Scanner, a *app, label string) (time.Time, bool) {
	s, ok := prompt(sc, a, label)
	if !ok {
		return time.Time{}, false
	}
	t, err := parseDate(s, a.now())
	if err != nil {
		fmt.Fprintf(a.out, "Invalid date: %s (use YYYY-MM-DD)\n", s)
		return time.Time{}, false
	}
	return t, true
}

func parseDate(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	return time.ParseInLocation(dateLayout, s, now.Location())
}

// ------------------ Handlers ------------------

func handleRegisterGame(sc *bufio.Scanner, a *app) {
	name, ok := prompt(sc, a, "Game name: ")
	if !ok {
		return
	}
	category, ok := prompt(sc, a, "Category: ")
	if !ok {
		return
	}

	g, err := a.ledger.RegisterGame(name, category)
	if err != nil {
		reportFailure(a, "menu.register_game", "Could not register game", err)
		return
	}
	fmt.Fprintf(a.out, "Game registered: #%d - %s (%s)\n", g.ID, g.Name, g.Category)
}

func handleRegisterMember(sc *bufio.Scanner, a *app) {
	name, ok := prompt(sc, a, "Member name: ")
	if !ok {
		return
	}
	contact, ok := prompt(sc, a, "Contact (phone/email): ")
	if !ok {
		return
	}

	m, err := a.ledger.RegisterMember(name, contact)
	if err != nil {
		reportFailure(a, "menu.register_member", "Could not register member", err)
		return
	}
	fmt.Fprintf(a.out, "Member registered: #%d - %s\n", m.ID, m.Name)
}

func handleListGames(a *app) {
	games := a.ledger.ListGames()
	if len(games) == 0 {
		fmt.Fprintln(a.out, "No games registered.")
		return
	}

	fmt.Fprintf(a.out, "%-5s %-30s %-20s %s\n", "ID", "Name", "Category", "On loan")
	fmt.Fprintln(a.out, strings.Repeat("-", 66))
	for _, g := range games {
		fmt.Fprintf(a.out, "%-5d %-30s %-20s %t\n", g.ID, truncateString(g.Name, 30), truncateString(g.Category, 20), g.OnLoan)
	}
}

func handleListMembers(a *app) {
	members := a.ledger.ListMembers()
	if len(members) == 0 {
		fmt.Fprintln(a.out, "No members registered.")
		return
	}

	fmt.Fprintf(a.out, "%-5s %-30s %s\n", "ID", "Name", "Contact")
	fmt.Fprintln(a.out, strings.Repeat("-", 60))
	for _, m := range members {
		fmt.Fprintf(a.out, "%-5d %-30s %s\n", m.ID, truncateString(m.Name, 30), m.Contact)
	}
}

func handleListActiveLoans(a *app) {
	loans := a.ledger.ActiveLoans()
	if len(loans) == 0 {
		fmt.Fprintln(a.out, "No active loans.")
		return
	}

	today := a.now()
	fmt.Fprintf(a.out, "%-5s %-25s %-20s %-10s %-10s %s\n", "ID", "Game", "Member", "Loaned", "Due", "Overdue")
	fmt.Fprintln(a.out, strings.Repeat("-", 85))
	for _, ln := range loans {
		game, _ := a.ledger.GameName(ln.GameID)
		member, _ := a.ledger.MemberName(ln.MemberID)
		overdue := ""
		if days := ln.DaysLateAt(today); days > 0 {
			overdue = fmt.Sprintf("%d day(s)", days)
		}
		fmt.Fprintf(a.out, "%-5d %-25s %-20s %-10s %-10s %s\n",
			ln.ID,
			truncateString(game, 25),
			truncateString(member, 20),
			ln.LoanDate.Format(dateLayout),
			ln.DueDate.Format(dateLayout),
			overdue)
	}
}

func handleLend(sc *bufio.Scanner, a *app) {
	gameID, ok := promptID(sc, a, "Game ID: ")
	if !ok {
		return
	}
	memberID, ok := promptID(sc, a, "Member ID: ")
	if !ok {
		return
	}
	loanDate, ok := promptDate(sc, a, "Loan date (YYYY-MM-DD, blank for today): ")
	if !ok {
		return
	}

	days := a.ledger.DefaultGraceDays()
	s, ok := prompt(sc, a, fmt.Sprintf("Days until due (default %d): ", days))
	if !ok {
		return
	}
	if s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			fmt.Fprintf(a.out, "Invalid number of days: %s\n", s)
			return
		}
		days = n
	}

	loan, err := a.ledger.Lend(gameID, memberID, loanDate, days)
	if err != nil {
		reportFailure(a, "menu.lend", "Could not lend game", err)
		return
	}
	fmt.Fprintf(a.out, "Loan created: #%d - due %s\n", loan.ID, loan.DueDate.Format(dateLayout))
}

func handleReturn(sc *bufio.Scanner, a *app) {
	loanID, ok := promptID(sc, a, "Loan ID: ")
	if !ok {
		return
	}
	returnDate, ok := promptDate(sc, a, "Return date (YYYY-MM-DD, blank for today): ")
	if !ok {
		return
	}

	days, fine, err := a.ledger.QuoteReturn(loanID, returnDate)
	if err != nil {
		reportFailure(a, "menu.return", "Could not return game", err)
		return
	}
	fmt.Fprintf(a.out, "Fine: %s (days late: %d)\n", fine.StringFixed(2), days)

	s, ok := prompt(sc, a, "Amount paid: ")
	if !ok {
		return
	}
	if s == "" {
		s = "0"
	}
	paid, err := decimal.NewFromString(s)
	if err != nil {
		fmt.Fprintf(a.out, "Invalid amount: %s\n", s)
		return
	}

	_, charged, err := a.ledger.ReturnLoan(loanID, returnDate, paid)
	if err != nil {
		reportFailure(a, "menu.return", "Could not return game", err)
		return
	}
	fmt.Fprintf(a.out, "Return recorded. Fine charged: %s\n", charged.StringFixed(2))
}

func handleReport(a *app) {
	if err := a.writeReport(); err != nil {
		reportFailure(a, "menu.report", "Could not write report", err)
	}
}

func handleSave(a *app) {
	if err := a.save(); err != nil {
		reportFailure(a, "menu.save", "Could not save data", err)
		return
	}
	fmt.Fprintf(a.out, "Data saved to %s\n", a.store.Location(a.cfg.StateFile))
}

func handleExit(a *app) {
	if err := a.save(); err != nil {
		reportFailure(a, "menu.exit", "Could not save data", err)
		fmt.Fprintln(a.out, "Exiting without saving.")
		return
	}
	fmt.Fprintln(a.out, "Exiting... data saved.")
}

// reportFailure tells the user what went wrong and records it in the error log.
func reportFailure(a *app, op, what string, err error) {
	a.elog.Record(op, err)

	var msg string
	switch lending.KindOf(err) {
	case lending.KindInsufficientPayment:
		due, _ := lending.DueAmount(err)
		msg = fmt.Sprintf("insufficient payment, fine due is %s", due.StringFixed(2))
	case lending.KindPersistence:
		msg = fmt.Sprintf("storage failure (details in %s)", a.cfg.LogPath())
	default:
		var le *lending.Error
		if errors.As(err, &le) && le.Msg != "" {
			msg = le.Msg
		} else {
			msg = err.Error()
		}
	}
	fmt.Fprintf(a.out, "%s: %s\n", what, msg)
}

// truncateString shortens s to maxLength runes, marking the cut with "...".
func truncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(r[:maxLength])
	}
	return string(r[:maxLength-3]) + "..."
}
