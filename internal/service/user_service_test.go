package service

import (
	"context"
	"fmt"
	"testing"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	byID        map[string]*model.User
	byAuthID    map[string]*model.User
	createErr   error
	createCalls int
	nextID      int
	// missFirstLookup makes the first GetUserByAuthID miss, simulating a
	// lookup that raced a concurrent insert.
	missFirstLookup bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:     make(map[string]*model.User),
		byAuthID: make(map[string]*model.User),
	}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	u.ID = fmt.Sprintf("id-%d", f.nextID)
	copy := *u
	f.byID[u.ID] = &copy
	f.byAuthID[u.AuthID] = &copy
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *u
	return &copy, nil
}

func (f *fakeUserRepo) GetUserByAuthID(_ context.Context, authID string) (*model.User, error) {
	if f.missFirstLookup {
		f.missFirstLookup = false
		return nil, nil
	}
	u, ok := f.byAuthID[authID]
	if !ok {
		return nil, nil
	}
	copy := *u
	return &copy, nil
}

func (f *fakeUserRepo) UpdateUsername(_ context.Context, id, username string) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Username = username
	copy := *u
	return &copy, nil
}

func (f *fakeUserRepo) ListUsers(context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range f.byID {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUserRepo) DeleteUser(_ context.Context, id string) error {
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(f.byAuthID, u.AuthID)
	delete(f.byID, id)
	return nil
}

func (f *fakeUserRepo) CountUsers(context.Context) (int, error) {
	return len(f.byID), nil
}

func TestEnsureUserProvisionsOnFirstSight(t *testing.T) {
	users := newFakeUserRepo()
	usage := newFakeUsageRepo()
	svc := NewUserService(users, usage, zerolog.Nop())

	user, err := svc.EnsureUser(context.Background(), "auth-1", "melhoi@example.com", "")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "melhoi", user.Username)
	assert.Equal(t, model.RoleUser, user.Role)

	// One usage entry per known model comes attached.
	assert.Len(t, user.Usage, len(model.KnownModels()))
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewUserService(users, newFakeUsageRepo(), zerolog.Nop())

	first, err := svc.EnsureUser(context.Background(), "auth-1", "melhoi@example.com", "Melhoi")
	require.NoError(t, err)
	second, err := svc.EnsureUser(context.Background(), "auth-1", "melhoi@example.com", "Melhoi")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, users.createCalls)
}

func TestEnsureUserRecoversFromConcurrentCreate(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewUserService(users, newFakeUsageRepo(), zerolog.Nop())

	// Another request won the insert race after our lookup missed.
	existing := &model.User{ID: "id-9", AuthID: "auth-1", Email: "melhoi@example.com", Username: "melhoi"}
	users.createErr = fmt.Errorf("duplicate key value violates unique constraint")
	users.byAuthID["auth-1"] = existing
	users.byID["id-9"] = existing
	users.missFirstLookup = true

	user, err := svc.EnsureUser(context.Background(), "auth-1", "melhoi@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "id-9", user.ID)
}

func TestGetUnknownUser(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), newFakeUsageRepo(), zerolog.Nop())

	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUsernameFromEmail(t *testing.T) {
	assert.Equal(t, "melhoi", usernameFromEmail("melhoi@example.com"))
	assert.Contains(t, usernameFromEmail("not-an-email"), "user_")
}
