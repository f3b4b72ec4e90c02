package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/quizbid/quizbid/internal/auction"
	"github.com/quizbid/quizbid/internal/sqlutil"
)

// Repository implements team ledger data access. It satisfies
// auction.TeamLedger for the coordination core.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new ledger repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateEntry opens a ledger row for a team with its starting balance.
func (r *Repository) CreateEntry(ctx context.Context, team string, points int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO team_ledger (team, points, questions_won) VALUES ($1, $2, '{}')`,
		team, points,
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

// FindByTeam retrieves a team's ledger entry, (nil, nil) when the team
// has no row.
func (r *Repository) FindByTeam(ctx context.Context, team string) (*auction.LedgerEntry, error) {
	var entry auction.LedgerEntry
	err := r.db.QueryRowContext(ctx,
		`SELECT team, points, questions_won FROM team_ledger WHERE team = $1`,
		team,
	).Scan(&entry.Team, &entry.Points, pq.Array(&entry.QuestionsWon))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ledger entry: %w", err)
	}
	return &entry, nil
}

// ApplyAtomic debits a team's balance and appends the won title in one
// transaction. Settlement must never debit without recording the win
// or vice versa. The balance may go negative; no floor is enforced.
func (r *Repository) ApplyAtomic(ctx context.Context, team string, debit int64, wonTitle string) error {
	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE team_ledger SET points = points - $2 WHERE team = $1`,
			team, debit,
		)
		if err != nil {
			return fmt.Errorf("debit points: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("debit points: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("no ledger entry for team %s", team)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE team_ledger SET questions_won = array_append(questions_won, $2) WHERE team = $1`,
			team, wonTitle,
		); err != nil {
			return fmt.Errorf("append won question: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply ledger update: %w", err)
	}
	return nil
}

// ListEntries retrieves all ledger entries ordered by balance, highest
// first. This backs the standings view.
func (r *Repository) ListEntries(ctx context.Context) ([]auction.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT team, points, questions_won FROM team_ledger ORDER BY points DESC, team`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []auction.LedgerEntry
	for rows.Next() {
		var entry auction.LedgerEntry
		if err := rows.Scan(&entry.Team, &entry.Points, pq.Array(&entry.QuestionsWon)); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}
