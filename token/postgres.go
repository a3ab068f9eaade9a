package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mwalcott3/authgate/token/migrations"
)

// PostgresStore keeps refresh-token records in a refresh_tokens table.
// Redemption takes a row lock so concurrent presentations of the same value
// serialize and exactly one wins.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("database handle is required")
	}
	return &PostgresStore{db: db}, nil
}

// OpenPostgresStore opens a pgx database/sql connection for dsn and applies
// the embedded schema migrations.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// RunMigrations applies the embedded goose migrations.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Add(ctx context.Context, rec *Record) error {
	if rec == nil || rec.Value == "" || rec.UserID == "" {
		return errors.New("record requires value and user id")
	}

	query := `INSERT INTO refresh_tokens (user_id, value, jti, used, revoked, added_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query,
		rec.UserID, rec.Value, rec.JTI, rec.Used, rec.Revoked, rec.AddedAt, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

func (s *PostgresStore) Find(ctx context.Context, value, userID string) (*Record, error) {
	query := `SELECT jti, used, revoked, added_at, expires_at
		FROM refresh_tokens WHERE value = $1 AND user_id = $2`

	rec := &Record{UserID: userID, Value: value}
	err := s.db.QueryRowContext(ctx, query, value, userID).
		Scan(&rec.JTI, &rec.Used, &rec.Revoked, &rec.AddedAt, &rec.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return rec, nil
}

func (s *PostgresStore) Redeem(ctx context.Context, value, userID string, now time.Time) (*Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	query := `SELECT jti, used, revoked, added_at, expires_at
		FROM refresh_tokens WHERE value = $1 AND user_id = $2 FOR UPDATE`

	rec := &Record{UserID: userID, Value: value}
	err = tx.QueryRowContext(ctx, query, value, userID).
		Scan(&rec.JTI, &rec.Used, &rec.Revoked, &rec.AddedAt, &rec.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Expiry outranks the used/revoked flags.
	if now.After(rec.ExpiresAt) {
		return nil, ErrExpired
	}
	if rec.Used || rec.Revoked {
		return nil, ErrReused
	}

	update := `UPDATE refresh_tokens SET used = TRUE WHERE value = $1 AND user_id = $2`
	if _, err := tx.ExecContext(ctx, update, value, userID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec.Used = true
	return rec, nil
}

func (s *PostgresStore) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `UPDATE refresh_tokens SET revoked = TRUE
		WHERE user_id = $1 AND NOT used AND NOT revoked AND expires_at > NOW()`

	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return count, nil
}
