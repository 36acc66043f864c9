package lending

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger holds every game, member and loan plus the id sequences for each.
//
// All invariant checks run before any mutation, so a failed operation leaves the
// ledger exactly as it was. A Ledger is not safe for concurrent use; callers that
// share one must serialize access themselves.
type Ledger struct {
	games   []Game
	members []Member
	loans   []Loan

	gameIdx   map[int64]int
	memberIdx map[int64]int
	loanIdx   map[int64]int

	gameIDs   *Sequence
	memberIDs *Sequence
	loanIDs   *Sequence

	fineRate  decimal.Decimal
	graceDays int
}

type Option func(*Ledger)

// WithDailyFineRate overrides the per-day overdue charge.
func WithDailyFineRate(rate decimal.Decimal) Option {
	return func(l *Ledger) { l.fineRate = rate }
}

// WithDefaultGraceDays overrides the loan period used by LendDefault.
func WithDefaultGraceDays(days int) Option {
	return func(l *Ledger) { l.graceDays = days }
}

func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		gameIdx:   map[int64]int{},
		memberIdx: map[int64]int{},
		loanIdx:   map[int64]int{},
		gameIDs:   NewSequence(),
		memberIDs: NewSequence(),
		loanIDs:   NewSequence(),
		fineRate:  DefaultDailyFineRate,
		graceDays: DefaultGraceDays,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) DailyFineRate() decimal.Decimal { return l.fineRate }
func (l *Ledger) DefaultGraceDays() int          { return l.graceDays }

// ------------------ Registration ------------------

// RegisterGame adds a game. Names are trimmed and must be unique ignoring case;
// a blank category becomes DefaultCategory.
func (l *Ledger) RegisterGame(name, category string) (Game, error) {
	const op = "ledger.register_game"

	name = strings.TrimSpace(name)
	if name == "" {
		return Game{}, newError(op, KindValidation, "game name cannot be empty")
	}
	for _, g := range l.games {
		if strings.EqualFold(g.Name, name) {
			return Game{}, newError(op, KindDuplicate, "a game named %q already exists (id %d)", g.Name, g.ID)
		}
	}

	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}

	g := Game{ID: l.gameIDs.Next(), Name: name, Category: category}
	l.gameIdx[g.ID] = len(l.games)
	l.games = append(l.games, g)
	return g, nil
}

// RegisterMember adds a borrower. Member names need not be unique.
func (l *Ledger) RegisterMember(name, contact string) (Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Member{}, newError("ledger.register_member", KindValidation, "member name cannot be empty")
	}

	contact = strings.TrimSpace(contact)
	if contact == "" {
		contact = DefaultContact
	}

	m := Member{ID: l.memberIDs.Next(), Name: name, Contact: contact}
	l.memberIdx[m.ID] = len(l.members)
	l.members = append(l.members, m)
	return m, nil
}

// ------------------ Circulation ------------------

// Lend creates a loan due graceDays after loanDate and marks the game on loan.
func (l *Ledger) Lend(gameID, memberID int64, loanDate time.Time, graceDays int) (Loan, error) {
	const op = "ledger.lend"

	if graceDays < 0 {
		return Loan{}, newError(op, KindValidation, "grace period cannot be negative (got %d days)", graceDays)
	}
	gi, ok := l.gameIdx[gameID]
	if !ok {
		return Loan{}, newError(op, KindNotFound, "game %d does not exist", gameID)
	}
	if _, ok := l.memberIdx[memberID]; !ok {
		return Loan{}, newError(op, KindNotFound, "member %d does not exist", memberID)
	}
	if l.games[gi].OnLoan {
		return Loan{}, newError(op, KindConflict, "game %d is already on loan", gameID)
	}

	loan := Loan{
		ID:       l.loanIDs.Next(),
		GameID:   gameID,
		MemberID: memberID,
		LoanDate: loanDate,
		DueDate:  loanDate.AddDate(0, 0, graceDays),
		FinePaid: decimal.Zero,
	}
	l.loanIdx[loan.ID] = len(l.loans)
	l.loans = append(l.loans, loan)
	l.games[gi].OnLoan = true
	return loan, nil
}

// LendDefault is Lend with the ledger's default grace period.
func (l *Ledger) LendDefault(gameID, memberID int64, loanDate time.Time) (Loan, error) {
	return l.Lend(gameID, memberID, loanDate, l.graceDays)
}

// QuoteReturn previews the days late and fine for returning loanID at returnDate.
func (l *Ledger) QuoteReturn(loanID int64, returnDate time.Time) (int, decimal.Decimal, error) {
	loan, err := l.activeLoan("ledger.quote_return", loanID)
	if err != nil {
		return 0, decimal.Zero, err
	}
	days := loan.DaysLateAt(returnDate)
	return days, fineFor(days, l.fineRate), nil
}

// ReturnLoan closes an active loan, charging DaysLate × daily rate.
// When amountPaid does not cover the fine the loan is left active and the
// error carries the amount due (see DueAmount).
func (l *Ledger) ReturnLoan(loanID int64, returnDate time.Time, amountPaid decimal.Decimal) (Loan, decimal.Decimal, error) {
	const op = "ledger.return_loan"

	loan, err := l.activeLoan(op, loanID)
	if err != nil {
		return Loan{}, decimal.Zero, err
	}

	fine := fineFor(loan.DaysLateAt(returnDate), l.fineRate)
	if amountPaid.LessThan(fine) {
		return Loan{}, fine, &Error{
			Op:   op,
			Kind: KindInsufficientPayment,
			Msg:  "payment of " + amountPaid.StringFixed(2) + " does not cover fine of " + fine.StringFixed(2),
			Due:  fine,
		}
	}

	rd := returnDate
	li := l.loanIdx[loanID]
	l.loans[li].returnedAt = &rd
	l.loans[li].FinePaid = fine
	if gi, ok := l.gameIdx[loan.GameID]; ok {
		l.games[gi].OnLoan = false
	}
	return l.loans[li], fine, nil
}

func (l *Ledger) activeLoan(op string, loanID int64) (Loan, error) {
	li, ok := l.loanIdx[loanID]
	if !ok {
		return Loan{}, newError(op, KindNotFound, "loan %d does not exist", loanID)
	}
	loan := l.loans[li]
	if loan.IsReturned() {
		return Loan{}, newError(op, KindAlreadyReturned, "loan %d was already returned", loanID)
	}
	return loan, nil
}

// ------------------ Queries ------------------

// ListGames returns every game ordered by id.
func (l *Ledger) ListGames() []Game { return sortedByID(l.games, func(g Game) int64 { return g.ID }) }

func (l *Ledger) ListMembers() []Member {
	return sortedByID(l.members, func(m Member) int64 { return m.ID })
}

func (l *Ledger) ListLoans() []Loan { return sortedByID(l.loans, func(ln Loan) int64 { return ln.ID }) }

// ActiveLoans returns unreturned loans ordered by id.
func (l *Ledger) ActiveLoans() []Loan {
	return slices.DeleteFunc(l.ListLoans(), Loan.IsReturned)
}

// ReturnedLoans returns closed loans ordered by id.
func (l *Ledger) ReturnedLoans() []Loan {
	return slices.DeleteFunc(l.ListLoans(), func(ln Loan) bool { return !ln.IsReturned() })
}

func (l *Ledger) Game(id int64) (Game, bool) {
	i, ok := l.gameIdx[id]
	if !ok {
		return Game{}, false
	}
	return l.games[i], true
}

func (l *Ledger) Member(id int64) (Member, bool) {
	i, ok := l.memberIdx[id]
	if !ok {
		return Member{}, false
	}
	return l.members[i], true
}

func (l *Ledger) Loan(id int64) (Loan, bool) {
	i, ok := l.loanIdx[id]
	if !ok {
		return Loan{}, false
	}
	return l.loans[i], true
}

func (l *Ledger) GameName(id int64) (string, bool) {
	g, ok := l.Game(id)
	return g.Name, ok
}

func (l *Ledger) MemberName(id int64) (string, bool) {
	m, ok := l.Member(id)
	return m.Name, ok
}

func sortedByID[T any](in []T, id func(T) int64) []T {
	out := slices.Clone(in)
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(id(a), id(b)) })
	return out
}
