package question

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/quizbid/quizbid/internal/auction"
	"github.com/quizbid/quizbid/internal/sqlutil"
)

// Repository implements question catalog data access. It satisfies
// auction.QuestionStore for the coordination core and adds the catalog
// management operations the operator API uses.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new question repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateQuestionRequest represents the data needed to add a question
// to the catalog.
type CreateQuestionRequest struct {
	Index       int     `json:"index"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Tag         *string `json:"tag,omitempty"`
}

// CreateQuestion adds a question to the catalog.
func (r *Repository) CreateQuestion(ctx context.Context, req CreateQuestionRequest) (*auction.Question, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO questions (idx, title, description, tag)
		 VALUES ($1, $2, $3, $4)
		 RETURNING idx, title, description, tag, owner`,
		req.Index, req.Title, req.Description, sqlutil.ToSqlString(req.Tag),
	)
	q, err := scanQuestion(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return q, nil
}

// FindByIndex retrieves a question by its catalog index. A missing
// index is not an error: it returns (nil, nil), and the controller
// opens the lot with placeholders.
func (r *Repository) FindByIndex(ctx context.Context, index int) (*auction.Question, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT idx, title, description, tag, owner FROM questions WHERE idx = $1`,
		index,
	)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find question by index: %w", err)
	}
	return q, nil
}

// SetOwner records the winning team on a question. The owner is set
// exactly once and never reverted, so an already-owned question is
// left untouched. Updating a missing index is a no-op as well,
// matching settlement of a placeholder lot.
func (r *Repository) SetOwner(ctx context.Context, index int, team string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE questions SET owner = $2 WHERE idx = $1 AND owner IS NULL`,
		index, team,
	)
	if err != nil {
		return fmt.Errorf("failed to set question owner: %w", err)
	}
	return nil
}

// ListAll retrieves the full catalog ordered by index.
func (r *Repository) ListAll(ctx context.Context) ([]auction.Question, error) {
	return r.list(ctx,
		`SELECT idx, title, description, tag, owner FROM questions ORDER BY idx`)
}

// ListOwned retrieves the questions that have been won, ordered by
// index. This backs the standings view.
func (r *Repository) ListOwned(ctx context.Context) ([]auction.Question, error) {
	return r.list(ctx,
		`SELECT idx, title, description, tag, owner FROM questions WHERE owner IS NOT NULL ORDER BY idx`)
}

func (r *Repository) list(ctx context.Context, query string) ([]auction.Question, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []auction.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate questions: %w", err)
	}
	return questions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*auction.Question, error) {
	var q auction.Question
	var tag, owner sql.NullString
	if err := row.Scan(&q.Index, &q.Title, &q.Description, &tag, &owner); err != nil {
		return nil, err
	}
	q.Tag = sqlutil.FromSqlStringPtr(tag)
	q.Owner = sqlutil.FromSqlStringPtr(owner)
	return &q, nil
}
