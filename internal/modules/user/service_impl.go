package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 4

type service struct {
	repo  Repository
	clock clock.Clock
	log   *zap.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, clk clock.Clock, log *zap.Logger) Service {
	return &service{repo: repo, clock: clk, log: log}
}

func (s *service) CreateUser(ctx context.Context, req CreateRequest) (*User, error) {
	req.Fullname = strings.TrimSpace(req.Fullname)
	req.Shortname = strings.TrimSpace(req.Shortname)
	if req.Fullname == "" {
		return nil, tillerr.User("full name is required")
	}
	if req.Shortname == "" {
		req.Shortname = req.Fullname
	}
	u := &User{
		Fullname:    req.Fullname,
		Shortname:   req.Shortname,
		Enabled:     true,
		Superuser:   req.Superuser,
		Permissions: append([]string(nil), req.Permissions...),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, tillerr.User("a user with the name %q already exists", req.Fullname)
		}
		return nil, fmt.Errorf("create user: %w", database.Classify(err))
	}
	s.log.Info("user created", zap.Int64("user", u.ID), zap.String("name", u.Fullname))
	return u, nil
}

func (s *service) GetUser(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, database.Classify(err)
	}
	return u, nil
}

func (s *service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *service) SetPassword(ctx context.Context, id int64, password string) error {
	if len(password) < minPasswordLength {
		return tillerr.User("password must be at least %d characters", minPasswordLength)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.SetPasswordHash(ctx, id, string(hashed)); err != nil {
		return database.Classify(err)
	}
	return nil
}

func (s *service) CheckPassword(ctx context.Context, id int64, password string) (*User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil || u.PasswordHash == nil || !u.Enabled {
		return nil, tillerr.User("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)) != nil {
		return nil, tillerr.User("invalid credentials")
	}
	return u, nil
}

func (s *service) HasPermission(ctx context.Context, id int64, perm string) (bool, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return false, err
	}
	return u.Enabled && u.HasPermission(perm), nil
}

// SignOn records the terminal the user is now working at. The database
// notifies the user's previous register so it can sign them off.
func (s *service) SignOn(ctx context.Context, id int64, registerID uuid.UUID) (*User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.Enabled {
		return nil, tillerr.User("user %s is disabled", u.Fullname)
	}
	if u.RegisterID != nil && *u.RegisterID == registerID {
		return u, nil
	}
	if err := s.repo.SetRegister(ctx, id, registerID); err != nil {
		return nil, database.Classify(err)
	}
	u.RegisterID = &registerID
	s.log.Info("user signed on", zap.Int64("user", id), zap.String("register", registerID.String()))
	return u, nil
}

// TakeTransaction makes the user the owner of transID. A previous owner
// is released and told who took the transaction over.
func (s *service) TakeTransaction(ctx context.Context, id, transID int64) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("Transaction %d was taken over by %s", transID, u.Fullname)
	previous, err := s.repo.TakeTransaction(ctx, id, transID, s.clock.Now(), msg)
	if err != nil {
		return database.Classify(err)
	}
	if previous != 0 {
		s.log.Info("transaction taken over",
			zap.Int64("trans", transID), zap.Int64("from", previous), zap.Int64("to", id))
	}
	return nil
}

func (s *service) OwnerOf(ctx context.Context, transID int64) (*User, error) {
	return s.repo.OwnerOf(ctx, transID)
}

func (s *service) Release(ctx context.Context, id int64) error {
	return s.repo.Release(ctx, id)
}

func (s *service) QueueMessage(ctx context.Context, id int64, message string) error {
	if message == "" {
		return nil
	}
	return s.repo.QueueMessage(ctx, id, message)
}

func (s *service) PopMessage(ctx context.Context, id int64) (string, error) {
	return s.repo.PopMessage(ctx, id)
}
