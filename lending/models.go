package lending

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultCategory  = "Other"
	DefaultContact   = "-"
	DefaultGraceDays = 7
)

// DefaultDailyFineRate is charged per overdue day unless the ledger is built with another rate.
var DefaultDailyFineRate = decimal.NewFromInt(2)

// Game is a lendable item. OnLoan is true exactly while an unreturned loan references it.
type Game struct {
	ID       int64
	Name     string
	Category string
	OnLoan   bool
}

// Member is a registered borrower. Members are never mutated after registration.
type Member struct {
	ID      int64
	Name    string
	Contact string
}

// Loan records one lending of a game to a member.
// The return date is set once, by Ledger.ReturnLoan, and never changes afterwards.
type Loan struct {
	ID       int64
	GameID   int64
	MemberID int64
	LoanDate time.Time
	DueDate  time.Time
	FinePaid decimal.Decimal

	returnedAt *time.Time
}

// ReturnDate reports when the loan was returned; ok is false while it is active.
func (l Loan) ReturnDate() (t time.Time, ok bool) {
	if l.returnedAt == nil {
		return time.Time{}, false
	}
	return *l.returnedAt, true
}

func (l Loan) IsReturned() bool { return l.returnedAt != nil }

// DaysLate is the number of whole calendar days between the due date and the
// return date, or 0 for active loans and on-time returns.
func (l Loan) DaysLate() int {
	if l.returnedAt == nil {
		return 0
	}
	return l.DaysLateAt(*l.returnedAt)
}

// DaysLateAt computes DaysLate as if the loan were returned at t.
func (l Loan) DaysLateAt(t time.Time) int {
	return max(0, calendarDays(l.DueDate, t))
}

// Fine is DaysLate multiplied by rate.
func (l Loan) Fine(rate decimal.Decimal) decimal.Decimal {
	return fineFor(l.DaysLate(), rate)
}

func fineFor(daysLate int, rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(int64(daysLate)))
}

// calendarDays counts date boundaries from a to b, each read in its own location.
func calendarDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
