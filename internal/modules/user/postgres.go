package user

import (
	"context"
	"time"

	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL user repository.
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const userColumns = `id, fullname, shortname, enabled, superuser, permissions, password_hash,
	register_id, transaction, trans_since, message`

func (r *postgresRepository) CreateUser(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (fullname, shortname, enabled, superuser, permissions)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.db.QueryRowxContext(ctx, query, u.Fullname, u.Shortname, u.Enabled, u.Superuser, u.Permissions).Scan(&u.ID)
}

func (r *postgresRepository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	u := &User{}
	if err := r.db.GetContext(ctx, u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *postgresRepository) OwnerOf(ctx context.Context, transID int64) (*User, error) {
	var us []User
	if err := r.db.SelectContext(ctx, &us, `SELECT `+userColumns+` FROM users WHERE transaction = $1`, transID); err != nil {
		return nil, err
	}
	if len(us) == 0 {
		return nil, nil
	}
	return &us[0], nil
}

func (r *postgresRepository) ListUsers(ctx context.Context) ([]User, error) {
	var us []User
	err := r.db.SelectContext(ctx, &us, `SELECT `+userColumns+` FROM users ORDER BY fullname`)
	return us, err
}

func (r *postgresRepository) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	return database.ExpectOne(res, "user %d no longer exists", id)
}

func (r *postgresRepository) SetRegister(ctx context.Context, id int64, registerID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET register_id = $2 WHERE id = $1`, id, registerID)
	if err != nil {
		return err
	}
	return database.ExpectOne(res, "user %d no longer exists", id)
}

func (r *postgresRepository) TakeTransaction(ctx context.Context, userID, transID int64, at time.Time, message string) (int64, error) {
	var previous int64
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var owners []int64
		if err := tx.SelectContext(ctx, &owners, `
			SELECT id FROM users WHERE transaction = $1 AND id <> $2 FOR UPDATE`, transID, userID); err != nil {
			return err
		}
		if len(owners) > 0 {
			previous = owners[0]
			if _, err := tx.ExecContext(ctx, `
				UPDATE users SET transaction = NULL, trans_since = NULL,
				       message = coalesce(message || E'\n', '') || $2
				WHERE id = $1`, previous, message); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE users SET transaction = $2, trans_since = $3 WHERE id = $1`, userID, transID, at)
		if err != nil {
			return err
		}
		return database.ExpectOne(res, "user %d no longer exists", userID)
	})
	return previous, err
}

func (r *postgresRepository) Release(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET transaction = NULL, trans_since = NULL WHERE id = $1`, userID)
	return err
}

func (r *postgresRepository) QueueMessage(ctx context.Context, userID int64, message string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET message = coalesce(message || E'\n', '') || $2 WHERE id = $1`, userID, message)
	return err
}

func (r *postgresRepository) PopMessage(ctx context.Context, userID int64) (string, error) {
	var msg *string
	err := r.db.QueryRowxContext(ctx, `
		UPDATE users u SET message = NULL
		FROM (SELECT id, message FROM users WHERE id = $1 FOR UPDATE) old
		WHERE u.id = old.id
		RETURNING old.message`, userID).Scan(&msg)
	if err != nil || msg == nil {
		return "", err
	}
	return *msg, nil
}
