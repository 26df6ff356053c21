// Package secrets stores driver credentials encrypted with Fernet. The
// key lives outside the database, usually in TILL_SECRET_KEY.
package secrets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned by Get for an unknown secret.
var ErrNotFound = errors.New("secret not found")

// Repository persists encrypted tokens.
type Repository interface {
	Put(ctx context.Context, keyName, secretName string, token []byte) error
	Get(ctx context.Context, keyName, secretName string) ([]byte, error)
}

// Store encrypts values with one Fernet key. keyName separates secrets
// encrypted under different keys, so a key can be rotated per driver.
type Store struct {
	repo    Repository
	keyName string
	key     *fernet.Key
}

// GenerateKey returns a new random key in the encoding NewStore accepts.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", err
	}
	return k.Encode(), nil
}

// NewStore decodes key and returns a Store using it.
func NewStore(repo Repository, keyName, key string) (*Store, error) {
	k, err := fernet.DecodeKey(key)
	if err != nil {
		return nil, fmt.Errorf("invalid secret key: %w", err)
	}
	return &Store{repo: repo, keyName: keyName, key: k}, nil
}

// Put encrypts and stores value under name.
func (s *Store) Put(ctx context.Context, name string, value string) error {
	tok, err := fernet.EncryptAndSign([]byte(value), s.key)
	if err != nil {
		return fmt.Errorf("encrypt secret %s: %w", name, err)
	}
	return s.repo.Put(ctx, s.keyName, name, tok)
}

// Get returns the decrypted value stored under name.
func (s *Store) Get(ctx context.Context, name string) (string, error) {
	tok, err := s.repo.Get(ctx, s.keyName, name)
	if err != nil {
		return "", err
	}
	msg := fernet.VerifyAndDecrypt(tok, 0, []*fernet.Key{s.key})
	if msg == nil {
		return "", fmt.Errorf("secret %s cannot be decrypted with this key", name)
	}
	return string(msg), nil
}

type postgresRepository struct{ db *sqlx.DB }

// NewPostgresRepository stores tokens in the secrets table.
func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepository{db: db} }

func (r *postgresRepository) Put(ctx context.Context, keyName, secretName string, token []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO secrets (key_name, secret_name, token) VALUES ($1, $2, $3)
		ON CONFLICT (key_name, secret_name) DO UPDATE SET token = EXCLUDED.token`,
		keyName, secretName, token)
	return err
}

func (r *postgresRepository) Get(ctx context.Context, keyName, secretName string) ([]byte, error) {
	var tok []byte
	err := r.db.GetContext(ctx, &tok,
		`SELECT token FROM secrets WHERE key_name = $1 AND secret_name = $2`, keyName, secretName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return tok, nil
}
