package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scena-market/internal/audit"
	"scena-market/internal/config"
	"scena-market/pkg/models"
)

type fakeAccounts struct {
	accounts map[int64]*models.Account
	nextID   int64
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: make(map[int64]*models.Account), nextID: 1}
}

func (f *fakeAccounts) Create(_ context.Context, account *models.Account) error {
	for _, a := range f.accounts {
		if a.Username == account.Username {
			return fmt.Errorf("%w: имя пользователя %q занято", models.ErrState, account.Username)
		}
	}
	account.ID = f.nextID
	f.nextID++
	copied := *account
	f.accounts[account.ID] = &copied
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id int64) (*models.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: аккаунт %d", models.ErrNotFound, id)
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAccounts) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	for _, a := range f.accounts {
		if a.Username == username {
			copied := *a
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: аккаунт %q", models.ErrNotFound, username)
}

func (f *fakeAccounts) UpdateRole(_ context.Context, id int64, role models.Role) error {
	a, ok := f.accounts[id]
	if !ok {
		return fmt.Errorf("%w: аккаунт %d", models.ErrNotFound, id)
	}
	a.Role = role
	return nil
}

type fakeTx struct{}

func (fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeAuditRepo struct{}

func (fakeAuditRepo) Append(context.Context, *models.AuditRecord) error { return nil }

func newTestService() (*Service, *fakeAccounts) {
	accounts := newFakeAccounts()
	cfg := config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}
	trail := audit.NewTrail(fakeAuditRepo{}, audit.NopPublisher{}, zap.NewNop())
	svc := NewService(accounts, fakeTx{}, trail, cfg, zap.NewNop())
	return svc, accounts
}

func TestRegisterХешируетПароль(t *testing.T) {
	svc, accounts := newTestService()

	account, err := svc.Register(context.Background(), &models.RegisterRequest{Username: "organizer", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, account.Role)
	assert.NotEqual(t, "secret-pass", accounts.accounts[account.ID].PasswordHash)
	assert.NotEmpty(t, accounts.accounts[account.ID].PasswordHash)
}

func TestRegisterПроверяетДлины(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, &models.RegisterRequest{Username: "ab", Password: "secret-pass"})
	assert.True(t, models.IsValidation(err))
	_, err = svc.Register(ctx, &models.RegisterRequest{Username: "valid", Password: "short"})
	assert.True(t, models.IsValidation(err))
}

func TestLoginВыпускаетПроверяемыйТокен(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	account, err := svc.Register(ctx, &models.RegisterRequest{Username: "organizer", Password: "secret-pass"})
	require.NoError(t, err)

	token, err := svc.Login(ctx, &models.LoginRequest{Username: "organizer", Password: "secret-pass"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	identity, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, identity.AccountID)
	assert.Equal(t, models.RoleUser, identity.Role)
}

func TestLoginНеверныйПароль(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, &models.RegisterRequest{Username: "organizer", Password: "secret-pass"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &models.LoginRequest{Username: "organizer", Password: "wrong-pass"})
	assert.True(t, models.IsUnauthorized(err))
	_, err = svc.Login(ctx, &models.LoginRequest{Username: "ghost", Password: "secret-pass"})
	assert.True(t, models.IsUnauthorized(err))
}

func TestParseTokenОтклоняетЧужуюПодпись(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, &models.RegisterRequest{Username: "organizer", Password: "secret-pass"})
	require.NoError(t, err)
	token, err := svc.Login(ctx, &models.LoginRequest{Username: "organizer", Password: "secret-pass"})
	require.NoError(t, err)

	other := NewService(newFakeAccounts(), fakeTx{}, audit.NewTrail(fakeAuditRepo{}, audit.NopPublisher{}, zap.NewNop()), config.AuthConfig{JWTSecret: "other-secret", TokenTTL: time.Hour}, zap.NewNop())
	_, err = other.ParseToken(token)
	assert.True(t, models.IsUnauthorized(err))
}

func TestParseTokenОтклоняетПросроченный(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, &models.RegisterRequest{Username: "organizer", Password: "secret-pass"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := svc.Login(ctx, &models.LoginRequest{Username: "organizer", Password: "secret-pass"})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ParseToken(token)
	assert.True(t, models.IsUnauthorized(err))
}

func TestAssignRoleТолькоАдминистратор(t *testing.T) {
	svc, accounts := newTestService()
	ctx := context.Background()

	account, err := svc.Register(ctx, &models.RegisterRequest{Username: "organizer", Password: "secret-pass"})
	require.NoError(t, err)

	user := models.Identity{AccountID: 50, Role: models.RoleUser}
	err = svc.AssignRole(ctx, user, account.ID, models.RoleProvider)
	assert.True(t, models.IsUnauthorized(err))

	admin := models.Identity{AccountID: 1, Role: models.RoleAdmin}
	require.NoError(t, svc.AssignRole(ctx, admin, account.ID, models.RoleProvider))
	assert.Equal(t, models.RoleProvider, accounts.accounts[account.ID].Role)

	err = svc.AssignRole(ctx, admin, account.ID, models.Role("superuser"))
	assert.True(t, models.IsValidation(err))
}
