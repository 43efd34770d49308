package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists admins in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const adminColumns = `id, admin_id, first_name, middle_name, last_name, email, password_hash, created_at`

func (r *Repository) Insert(ctx context.Context, a Admin) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO admins (`+adminColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.AdminID, a.FirstName, a.MiddleName, a.LastName, a.Email, a.PasswordHash, a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (Admin, error) {
	return r.one(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (Admin, error) {
	return r.one(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = $1`, email)
}

func (r *Repository) LastAdminID(ctx context.Context) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT admin_id FROM admins ORDER BY length(admin_id) DESC, admin_id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

func (r *Repository) one(ctx context.Context, query string, arg any) (Admin, error) {
	var a Admin
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&a.ID, &a.AdminID, &a.FirstName, &a.MiddleName, &a.LastName, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Admin{}, ErrNotFound
	}
	return a, err
}
