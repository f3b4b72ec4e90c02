package team

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/quizbid/quizbid/internal/sqlutil"
)

// Repository implements team profile data access.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new team repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateTeam registers a team profile.
func (r *Repository) CreateTeam(ctx context.Context, req CreateTeamRequest) (*Team, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO teams (code, name, institution)
		 VALUES ($1, $2, $3)
		 RETURNING code, name, institution, created_at`,
		req.Code, req.Name, sqlutil.ToSqlString(req.Institution),
	)
	t, err := scanTeam(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return t, nil
}

// GetTeamByCode retrieves a team by its code, (nil, nil) when unknown.
func (r *Repository) GetTeamByCode(ctx context.Context, code string) (*Team, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT code, name, institution, created_at FROM teams WHERE code = $1`,
		code,
	)
	t, err := scanTeam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return t, nil
}

// ListTeams retrieves all registered teams.
func (r *Repository) ListTeams(ctx context.Context) ([]Team, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT code, name, institution, created_at FROM teams ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate teams: %w", err)
	}
	return teams, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTeam(row rowScanner) (*Team, error) {
	var t Team
	var institution sql.NullString
	if err := row.Scan(&t.Code, &t.Name, &institution, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Institution = sqlutil.FromSqlStringPtr(institution)
	return &t, nil
}
