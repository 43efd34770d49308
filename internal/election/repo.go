package election

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists elections in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const electionColumns = `id, code, name, description, election_type, restriction, start_date, end_date, status, created_by, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanElection(row scanner) (Election, error) {
	var e Election
	err := row.Scan(&e.ID, &e.Code, &e.Name, &e.Description, &e.Type, &e.Restriction,
		&e.StartDate, &e.EndDate, &e.Status, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// Insert writes a new election.
func (r *Repository) Insert(ctx context.Context, e Election) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO elections (`+electionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, e.ID, e.Code, e.Name, e.Description, e.Type, e.Restriction,
		e.StartDate, e.EndDate, e.Status, e.CreatedBy, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateCode
		}
		return fmt.Errorf("insert election: %w", err)
	}
	return nil
}

// Update rewrites the editable fields and the re-derived status.
func (r *Repository) Update(ctx context.Context, e Election) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE elections
		SET name = $2, description = $3, restriction = $4, start_date = $5, end_date = $6,
			status = $7, updated_at = $8
		WHERE id = $1
	`, e.ID, e.Name, e.Description, e.Restriction, e.StartDate, e.EndDate, e.Status, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update election: %w", err)
	}
	return expectRow(res)
}

// UpdateStatuses persists the reconciled subset in one transaction. Only the
// status column is written so concurrent admin edits to other fields survive.
func (r *Repository) UpdateStatuses(ctx context.Context, updated []Election) error {
	if len(updated) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `UPDATE elections SET status = $2 WHERE id = $1`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range updated {
		if _, err := stmt.ExecContext(ctx, e.ID, e.Status); err != nil {
			return fmt.Errorf("update status of %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Delete removes an election by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM elections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete election: %w", err)
	}
	return expectRow(res)
}

// Get returns a single election by id.
func (r *Repository) Get(ctx context.Context, id string) (Election, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+electionColumns+` FROM elections WHERE id = $1`, id)
	e, err := scanElection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Election{}, ErrNotFound
		}
		return Election{}, err
	}
	return e, nil
}

// List returns all elections newest first.
func (r *Repository) List(ctx context.Context) ([]Election, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+electionColumns+` FROM elections ORDER BY created_at DESC, code DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Election
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// LastCode returns the highest election code, or "" when none exist. Codes
// are zero-padded, so a longer code always carries a larger number.
func (r *Repository) LastCode(ctx context.Context) (string, error) {
	var code string
	err := r.db.QueryRowContext(ctx,
		`SELECT code FROM elections ORDER BY length(code) DESC, code DESC LIMIT 1`).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return code, err
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
