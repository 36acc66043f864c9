package lending

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ludoteca/storage"
)

// Snapshot is the persisted form of a ledger: every entity plus the id counters.
type Snapshot struct {
	Games   []GameRecord   `json:"games"`
	Members []MemberRecord `json:"members"`
	Loans   []LoanRecord   `json:"loans"`
	NextIDs NextIDs        `json:"nextIds"`
}

type GameRecord struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	OnLoan   bool   `json:"isOnLoan"`
}

type MemberRecord struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

type LoanRecord struct {
	ID         int64           `json:"id"`
	GameID     int64           `json:"gameId"`
	MemberID   int64           `json:"memberId"`
	LoanDate   time.Time       `json:"loanDate"`
	DueDate    time.Time       `json:"dueDate"`
	ReturnDate *time.Time      `json:"returnDate"`
	FinePaid   decimal.Decimal `json:"finePaid"`
}

// NextIDs holds the value each sequence will hand out next.
type NextIDs struct {
	Game   int64 `json:"game"`
	Member int64 `json:"member"`
	Loan   int64 `json:"loan"`
}

// Export copies the ledger state, including sequence positions.
func (l *Ledger) Export() Snapshot {
	s := Snapshot{
		Games:   make([]GameRecord, 0, len(l.games)),
		Members: make([]MemberRecord, 0, len(l.members)),
		Loans:   make([]LoanRecord, 0, len(l.loans)),
		NextIDs: NextIDs{
			Game:   l.gameIDs.Peek(),
			Member: l.memberIDs.Peek(),
			Loan:   l.loanIDs.Peek(),
		},
	}
	for _, g := range l.ListGames() {
		s.Games = append(s.Games, GameRecord(g))
	}
	for _, m := range l.ListMembers() {
		s.Members = append(s.Members, MemberRecord(m))
	}
	for _, ln := range l.ListLoans() {
		rec := LoanRecord{
			ID:       ln.ID,
			GameID:   ln.GameID,
			MemberID: ln.MemberID,
			LoanDate: ln.LoanDate,
			DueDate:  ln.DueDate,
			FinePaid: ln.FinePaid,
		}
		if rd, ok := ln.ReturnDate(); ok {
			rec.ReturnDate = &rd
		}
		s.Loans = append(s.Loans, rec)
	}
	return s
}

// Import replaces the ledger state with s. The snapshot is validated in full
// first; on error the ledger is unchanged.
//
// Game on-loan flags are rebuilt from the active loans. A saved counter that
// would re-issue an existing id is raised to one past the highest id.
func (l *Ledger) Import(s Snapshot) error {
	const op = "codec.import"
	fail := func(format string, args ...any) error {
		return persistenceError(op, fmt.Errorf(format, args...))
	}

	games := make([]Game, 0, len(s.Games))
	gameIdx := make(map[int64]int, len(s.Games))
	names := make(map[string]int64, len(s.Games))
	var maxGame int64
	for i, rec := range s.Games {
		name := strings.TrimSpace(rec.Name)
		switch {
		case rec.ID < 1:
			return fail("games[%d]: missing or invalid id", i)
		case name == "":
			return fail("games[%d]: missing name", i)
		}
		if _, dup := gameIdx[rec.ID]; dup {
			return fail("games[%d]: duplicate id %d", i, rec.ID)
		}
		if other, dup := names[strings.ToLower(name)]; dup {
			return fail("games[%d]: name %q already used by game %d", i, name, other)
		}
		category := strings.TrimSpace(rec.Category)
		if category == "" {
			category = DefaultCategory
		}
		gameIdx[rec.ID] = len(games)
		names[strings.ToLower(name)] = rec.ID
		games = append(games, Game{ID: rec.ID, Name: name, Category: category})
		maxGame = max(maxGame, rec.ID)
	}

	members := make([]Member, 0, len(s.Members))
	memberIdx := make(map[int64]int, len(s.Members))
	var maxMember int64
	for i, rec := range s.Members {
		name := strings.TrimSpace(rec.Name)
		switch {
		case rec.ID < 1:
			return fail("members[%d]: missing or invalid id", i)
		case name == "":
			return fail("members[%d]: missing name", i)
		}
		if _, dup := memberIdx[rec.ID]; dup {
			return fail("members[%d]: duplicate id %d", i, rec.ID)
		}
		contact := strings.TrimSpace(rec.Contact)
		if contact == "" {
			contact = DefaultContact
		}
		memberIdx[rec.ID] = len(members)
		members = append(members, Member{ID: rec.ID, Name: name, Contact: contact})
		maxMember = max(maxMember, rec.ID)
	}

	loans := make([]Loan, 0, len(s.Loans))
	loanIdx := make(map[int64]int, len(s.Loans))
	var maxLoan int64
	for i, rec := range s.Loans {
		switch {
		case rec.ID < 1:
			return fail("loans[%d]: missing or invalid id", i)
		case rec.LoanDate.IsZero():
			return fail("loans[%d]: missing loanDate", i)
		case rec.DueDate.IsZero():
			return fail("loans[%d]: missing dueDate", i)
		}
		if _, dup := loanIdx[rec.ID]; dup {
			return fail("loans[%d]: duplicate id %d", i, rec.ID)
		}
		gi, ok := gameIdx[rec.GameID]
		if !ok {
			return fail("loans[%d]: unknown game %d", i, rec.GameID)
		}
		if _, ok := memberIdx[rec.MemberID]; !ok {
			return fail("loans[%d]: unknown member %d", i, rec.MemberID)
		}
		loan := Loan{
			ID:       rec.ID,
			GameID:   rec.GameID,
			MemberID: rec.MemberID,
			LoanDate: rec.LoanDate,
			DueDate:  rec.DueDate,
			FinePaid: rec.FinePaid,
		}
		if rec.ReturnDate != nil {
			rd := *rec.ReturnDate
			loan.returnedAt = &rd
		} else {
			if games[gi].OnLoan {
				return fail("loans[%d]: game %d already has an active loan", i, rec.GameID)
			}
			games[gi].OnLoan = true
		}
		loanIdx[rec.ID] = len(loans)
		loans = append(loans, loan)
		maxLoan = max(maxLoan, rec.ID)
	}

	l.games, l.gameIdx = games, gameIdx
	l.members, l.memberIdx = members, memberIdx
	l.loans, l.loanIdx = loans, loanIdx
	l.gameIDs.Restore(max(s.NextIDs.Game, maxGame+1))
	l.memberIDs.Restore(max(s.NextIDs.Member, maxMember+1))
	l.loanIDs.Restore(max(s.NextIDs.Loan, maxLoan+1))
	return nil
}

// Encode renders a snapshot as indented JSON.
func Encode(s Snapshot) ([]byte, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, persistenceError("codec.encode", err)
	}
	return b, nil
}

// Decode parses a snapshot, rejecting documents that lack any top-level section.
func Decode(b []byte) (Snapshot, error) {
	const op = "codec.decode"

	var wire struct {
		Games   *[]GameRecord   `json:"games"`
		Members *[]MemberRecord `json:"members"`
		Loans   *[]LoanRecord   `json:"loans"`
		NextIDs *NextIDs        `json:"nextIds"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return Snapshot{}, persistenceError(op, err)
	}

	var missing []string
	if wire.Games == nil {
		missing = append(missing, "games")
	}
	if wire.Members == nil {
		missing = append(missing, "members")
	}
	if wire.Loans == nil {
		missing = append(missing, "loans")
	}
	if wire.NextIDs == nil {
		missing = append(missing, "nextIds")
	}
	if len(missing) > 0 {
		return Snapshot{}, persistenceError(op, fmt.Errorf("missing required sections: %s", strings.Join(missing, ", ")))
	}

	return Snapshot{
		Games:   *wire.Games,
		Members: *wire.Members,
		Loans:   *wire.Loans,
		NextIDs: *wire.NextIDs,
	}, nil
}

// Save writes the ledger to name in st. The ledger itself is never modified.
func Save(l *Ledger, st storage.Store, name string) error {
	b, err := Encode(l.Export())
	if err != nil {
		return err
	}
	if err := st.Write(name, b); err != nil {
		return persistenceError("codec.save", err)
	}
	return nil
}

// Load rebuilds a ledger from name in st. A missing document yields an empty
// ledger; an unreadable or malformed one yields a KindPersistence error.
func Load(st storage.Store, name string, opts ...Option) (*Ledger, error) {
	const op = "codec.load"

	l := NewLedger(opts...)
	exists, err := st.Exists(name)
	if err != nil {
		return nil, persistenceError(op, err)
	}
	if !exists {
		return l, nil
	}
	b, err := st.Read(name)
	if errors.Is(err, storage.ErrNotExist) {
		// removed between the two calls
		return l, nil
	}
	if err != nil {
		return nil, persistenceError(op, err)
	}

	snap, err := Decode(b)
	if err != nil {
		return nil, err
	}
	if err := l.Import(snap); err != nil {
		return nil, err
	}
	return l, nil
}
