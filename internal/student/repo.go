package student

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"campusvote/internal/face"
)

// Repository persists students in Postgres. The face profile is a jsonb column.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const studentColumns = `id, student_id, first_name, middle_name, last_name, email, faculty, program,
	password_hash, face_data, status, registration_complete, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (Student, error) {
	var (
		s       Student
		faceRaw []byte
	)
	err := row.Scan(&s.ID, &s.StudentID, &s.FirstName, &s.MiddleName, &s.LastName, &s.Email,
		&s.Faculty, &s.Program, &s.PasswordHash, &faceRaw, &s.Status, &s.RegistrationComplete,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Student{}, err
	}
	if len(faceRaw) > 0 {
		if err := json.Unmarshal(faceRaw, &s.Face); err != nil {
			return Student{}, fmt.Errorf("decode face data of %s: %w", s.StudentID, err)
		}
	}
	return s, nil
}

func (r *Repository) Insert(ctx context.Context, s Student) error {
	faceRaw, err := json.Marshal(s.Face)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, s.ID, s.StudentID, s.FirstName, s.MiddleName, s.LastName, s.Email, s.Faculty, s.Program,
		s.PasswordHash, faceRaw, s.Status, s.RegistrationComplete, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyRegistered
		}
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (Student, error) {
	return r.one(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
}

func (r *Repository) GetByStudentID(ctx context.Context, studentID string) (Student, error) {
	return r.one(ctx, `SELECT `+studentColumns+` FROM students WHERE student_id = $1`, studentID)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (Student, error) {
	return r.one(ctx, `SELECT `+studentColumns+` FROM students WHERE email = $1`, email)
}

func (r *Repository) Exists(ctx context.Context, studentID, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM students WHERE student_id = $1 OR email = $2)`,
		studentID, email).Scan(&exists)
	return exists, err
}

// SaveAttempts rewrites the two counter keys in place with jsonb_set, so an
// enrollment committed since the profile was read keeps its descriptor.
func (r *Repository) SaveAttempts(ctx context.Context, id string, p face.Profile, now time.Time) error {
	last, err := json.Marshal(p.LastVerificationAttempt)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET face_data = jsonb_set(
				jsonb_set(face_data, '{verification_attempts}', to_jsonb($2::int)),
				'{last_verification_attempt}', $3::jsonb),
			updated_at = $4
		WHERE id = $1
	`, id, p.VerificationAttempts, string(last), now.UTC())
	if err != nil {
		return fmt.Errorf("save verification attempts: %w", err)
	}
	return expectRow(res)
}

// AppendDescriptor concatenates d onto the stored descriptor array in one
// statement.
func (r *Repository) AppendDescriptor(ctx context.Context, id string, d face.Descriptor, now time.Time) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	stamp, err := json.Marshal(now.UTC())
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET face_data = jsonb_set(
				jsonb_set(face_data, '{descriptors}',
					CASE WHEN jsonb_typeof(face_data->'descriptors') = 'array'
						THEN face_data->'descriptors' ELSE '[]'::jsonb END
					|| jsonb_build_array($2::jsonb)),
				'{last_updated}', $3::jsonb),
			updated_at = $4
		WHERE id = $1
	`, id, string(raw), string(stamp), now.UTC())
	if err != nil {
		return fmt.Errorf("append face descriptor: %w", err)
	}
	return expectRow(res)
}

func (r *Repository) List(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+studentColumns+` FROM students ORDER BY last_name, first_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return expectRow(res)
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n)
	return n, err
}

func (r *Repository) one(ctx context.Context, query string, arg any) (Student, error) {
	s, err := scanStudent(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, ErrNotFound
		}
		return Student{}, err
	}
	return s, nil
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
