package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by Create when the email is taken.
	ErrDuplicateEmail = errors.New("email already exists")
)

// Repository persists users. Email uniqueness is enforced by the store
// itself, so Create is the authority on duplicates.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	MarkVerified(ctx context.Context, email string) (bool, error)
	UpdateOTPExpiry(ctx context.Context, email string, expiry time.Time) error
}

// DB is the subset of pgxpool.Pool used by PostgresRepository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements Repository using PostgreSQL. It relies on
// the UNIQUE constraint on users.email.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, full_name, email, company_name, mobile_number, agreed_to_terms, password_hash, is_verified, otp_expiry, created_at`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	if _, err := uuid.Parse(user.ID); err != nil {
		return fmt.Errorf("parse user id: %w", err)
	}
	_, err := r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.FullName, user.Email, user.CompanyName, user.MobileNumber, user.AgreedToTerms,
		user.PasswordHash, user.IsVerified, nullableTime(user.OTPExpiry), user.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByEmail fetches a user by exact email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// MarkVerified flags the user as verified and reports whether a row matched.
func (r *PostgresRepository) MarkVerified(ctx context.Context, email string) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET is_verified = TRUE WHERE email = $1`, email)
	if err != nil {
		return false, fmt.Errorf("mark verified: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

// UpdateOTPExpiry records the advisory expiry of the latest challenge.
func (r *PostgresRepository) UpdateOTPExpiry(ctx context.Context, email string, expiry time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET otp_expiry = $1 WHERE email = $2`, expiry.UTC(), email)
	if err != nil {
		return fmt.Errorf("update otp expiry: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		otpExpiry *time.Time
		createdAt time.Time
		user      User
	)
	err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.CompanyName, &user.MobileNumber,
		&user.AgreedToTerms, &user.PasswordHash, &user.IsVerified, &otpExpiry, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = createdAt.UTC()
	if otpExpiry != nil {
		user.OTPExpiry = otpExpiry.UTC()
	}
	return user, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
