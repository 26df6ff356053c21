package user

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepo struct {
	users map[int64]*User
}

func newMemRepo() *memRepo { return &memRepo{users: map[int64]*User{}} }

func (m *memRepo) CreateUser(_ context.Context, u *User) error {
	u.ID = int64(len(m.users) + 1)
	c := *u
	m.users[u.ID] = &c
	return nil
}

func (m *memRepo) GetUserByID(_ context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *u
	return &c, nil
}

func (m *memRepo) OwnerOf(_ context.Context, transID int64) (*User, error) {
	for _, u := range m.users {
		if u.TransactionID != nil && *u.TransactionID == transID {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memRepo) ListUsers(context.Context) ([]User, error) {
	var out []User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memRepo) SetPasswordHash(_ context.Context, id int64, hash string) error {
	m.users[id].PasswordHash = &hash
	return nil
}

func (m *memRepo) SetRegister(_ context.Context, id int64, registerID uuid.UUID) error {
	m.users[id].RegisterID = &registerID
	return nil
}

func (m *memRepo) TakeTransaction(ctx context.Context, userID, transID int64, at time.Time, message string) (int64, error) {
	var previous int64
	if owner, _ := m.OwnerOf(ctx, transID); owner != nil && owner.ID != userID {
		previous = owner.ID
		_ = m.Release(ctx, previous)
		_ = m.QueueMessage(ctx, previous, message)
	}
	u := m.users[userID]
	u.TransactionID = &transID
	u.TransSince = &at
	return previous, nil
}

func (m *memRepo) Release(_ context.Context, userID int64) error {
	m.users[userID].TransactionID = nil
	m.users[userID].TransSince = nil
	return nil
}

func (m *memRepo) QueueMessage(_ context.Context, userID int64, message string) error {
	u := m.users[userID]
	if u.Message != nil {
		message = *u.Message + "\n" + message
	}
	u.Message = &message
	return nil
}

func (m *memRepo) PopMessage(_ context.Context, userID int64) (string, error) {
	u := m.users[userID]
	if u.Message == nil {
		return "", nil
	}
	msg := *u.Message
	u.Message = nil
	return msg, nil
}

func newTestService(t *testing.T) (Service, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	clk := clock.NewManual(time.Date(2026, 3, 6, 20, 0, 0, 0, time.UTC))
	return NewService(repo, clk, zap.NewNop()), repo
}

func TestHasPermission(t *testing.T) {
	u := &User{Permissions: []string{PermVoid}}
	assert.True(t, u.HasPermission(PermVoid))
	assert.False(t, u.HasPermission(PermOverridePrice))

	u.Superuser = true
	assert.True(t, u.HasPermission(PermOverridePrice))
}

func TestService_CreateUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, CreateRequest{Fullname: " Alice Smith "})
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", u.Fullname)
	assert.Equal(t, "Alice Smith", u.Shortname)
	assert.True(t, u.Enabled)

	_, err = svc.CreateUser(ctx, CreateRequest{})
	assert.True(t, tillerr.Is(err, tillerr.KindUser))

	_, err = svc.GetUser(ctx, 99)
	assert.True(t, tillerr.Is(err, tillerr.KindState))
}

func TestService_Passwords(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, CreateRequest{Fullname: "Bob"})
	require.NoError(t, err)

	assert.True(t, tillerr.Is(svc.SetPassword(ctx, u.ID, "abc"), tillerr.KindUser))
	require.NoError(t, svc.SetPassword(ctx, u.ID, "letmein"))

	got, err := svc.CheckPassword(ctx, u.ID, "letmein")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.CheckPassword(ctx, u.ID, "wrong")
	assert.Error(t, err)

	repo.users[u.ID].Enabled = false
	_, err = svc.CheckPassword(ctx, u.ID, "letmein")
	assert.Error(t, err)
}

func TestService_SignOn(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, CreateRequest{Fullname: "Carol"})
	require.NoError(t, err)

	reg := uuid.New()
	got, err := svc.SignOn(ctx, u.ID, reg)
	require.NoError(t, err)
	assert.Equal(t, reg, *got.RegisterID)
	assert.Equal(t, reg, *repo.users[u.ID].RegisterID)

	repo.users[u.ID].Enabled = false
	_, err = svc.SignOn(ctx, u.ID, uuid.New())
	assert.True(t, tillerr.Is(err, tillerr.KindUser))
}

func TestService_TakeTransaction(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	alice, err := svc.CreateUser(ctx, CreateRequest{Fullname: "Alice"})
	require.NoError(t, err)
	bob, err := svc.CreateUser(ctx, CreateRequest{Fullname: "Bob"})
	require.NoError(t, err)

	require.NoError(t, svc.TakeTransaction(ctx, alice.ID, 7))
	owner, err := svc.OwnerOf(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, owner.ID)
	require.NotNil(t, repo.users[alice.ID].TransSince)

	require.NoError(t, svc.TakeTransaction(ctx, bob.ID, 7))
	owner, err = svc.OwnerOf(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, owner.ID)
	assert.Nil(t, repo.users[alice.ID].TransactionID)

	msg, err := svc.PopMessage(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Transaction 7 was taken over by Bob", msg)

	msg, err = svc.PopMessage(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, msg)

	require.NoError(t, svc.Release(ctx, bob.ID))
	owner, err = svc.OwnerOf(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, owner)
}
