package auction

import "context"

// Question is the catalog entry the controller reads when a lot opens
// and writes the owner of at settlement.
type Question struct {
	Index       int
	Title       string
	Description string
	Tag         *string
	Owner       *string
}

// LedgerEntry is a team's point balance and won-question history.
type LedgerEntry struct {
	Team         string
	Points       int64
	QuestionsWon []string
}

// QuestionStore is the catalog of lots. FindByIndex returns (nil, nil)
// when no question exists at the index.
type QuestionStore interface {
	FindByIndex(ctx context.Context, index int) (*Question, error)
	SetOwner(ctx context.Context, index int, team string) error
}

// TeamLedger holds point balances. FindByTeam returns (nil, nil)
// when the team has no ledger row. ApplyAtomic debits the balance and
// appends the won title in a single transaction.
type TeamLedger interface {
	FindByTeam(ctx context.Context, team string) (*LedgerEntry, error)
	ApplyAtomic(ctx context.Context, team string, debit int64, wonTitle string) error
}
