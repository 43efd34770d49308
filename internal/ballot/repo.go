package ballot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists positions and candidates in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const (
	positionColumns  = `id, code, name, max_vote, created_at, updated_at`
	candidateColumns = `id, code, election_id, student_id, position_id, campaign_statement, partylist,
		profile_picture, created_at, updated_at`
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *Repository) InsertPosition(ctx context.Context, p Position) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO positions (`+positionColumns+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.Code, p.Name, p.MaxVote, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePosition
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

func (r *Repository) UpdatePosition(ctx context.Context, p Position) error {
	res, err := r.db.ExecContext(ctx, `UPDATE positions SET name = $2, max_vote = $3, updated_at = $4 WHERE id = $1`,
		p.ID, p.Name, p.MaxVote, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePosition
		}
		return fmt.Errorf("update position: %w", err)
	}
	return expectRow(res, ErrPositionNotFound)
}

func (r *Repository) DeletePosition(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	return expectRow(res, ErrPositionNotFound)
}

func (r *Repository) GetPosition(ctx context.Context, id string) (Position, error) {
	var p Position
	err := r.db.QueryRowContext(ctx, `SELECT `+positionColumns+` FROM positions WHERE id = $1`, id).
		Scan(&p.ID, &p.Code, &p.Name, &p.MaxVote, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Position{}, ErrPositionNotFound
	}
	return p, err
}

func (r *Repository) ListPositions(ctx context.Context) ([]Position, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+positionColumns+` FROM positions ORDER BY created_at DESC, code DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.MaxVote, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r *Repository) LastPositionCode(ctx context.Context) (string, error) {
	return r.maxCode(ctx, `SELECT code FROM positions ORDER BY length(code) DESC, code DESC LIMIT 1`)
}

func (r *Repository) InsertCandidate(ctx context.Context, c Candidate) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO candidates (`+candidateColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		c.ID, c.Code, c.ElectionID, c.StudentID, c.PositionID, c.CampaignStatement, c.Partylist,
		c.ProfilePicture, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCandidate
		}
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

func (r *Repository) DeleteCandidate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete candidate: %w", err)
	}
	return expectRow(res, ErrCandidateNotFound)
}

func scanCandidate(row interface{ Scan(...any) error }) (Candidate, error) {
	var c Candidate
	err := row.Scan(&c.ID, &c.Code, &c.ElectionID, &c.StudentID, &c.PositionID, &c.CampaignStatement,
		&c.Partylist, &c.ProfilePicture, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *Repository) GetCandidate(ctx context.Context, id string) (Candidate, error) {
	c, err := scanCandidate(r.db.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Candidate{}, ErrCandidateNotFound
	}
	return c, err
}

func (r *Repository) ListCandidates(ctx context.Context) ([]Candidate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+candidateColumns+` FROM candidates ORDER BY created_at DESC, code DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *Repository) LastCandidateCode(ctx context.Context) (string, error) {
	return r.maxCode(ctx, `SELECT code FROM candidates ORDER BY length(code) DESC, code DESC LIMIT 1`)
}

// maxCode runs a query returning the highest zero-padded code. A longer code
// always carries a larger number, so text order breaks ties only.
func (r *Repository) maxCode(ctx context.Context, query string) (string, error) {
	var code string
	err := r.db.QueryRowContext(ctx, query).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return code, err
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
