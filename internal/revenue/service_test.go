package revenue

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scena-market/internal/audit"
	"scena-market/internal/config"
	"scena-market/pkg/models"
)

// fakeRepo — реализация Repository в памяти
type fakeRepo struct {
	profiles map[int64]*models.DistributionProfile
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{profiles: make(map[int64]*models.DistributionProfile), nextID: 1}
}

func (f *fakeRepo) Create(_ context.Context, profile *models.DistributionProfile) error {
	profile.ID = f.nextID
	f.nextID++
	copied := *profile
	f.profiles[profile.ID] = &copied
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*models.DistributionProfile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, fmt.Errorf("%w: профиль %d", models.ErrNotFound, id)
	}
	copied := *p
	return &copied, nil
}

func (f *fakeRepo) UpdateShares(_ context.Context, profileID int64, shares []models.ProfileShare) error {
	p, ok := f.profiles[profileID]
	if !ok {
		return fmt.Errorf("%w: профиль %d", models.ErrNotFound, profileID)
	}
	p.Shares = shares
	return nil
}

func (f *fakeRepo) SetDefault(_ context.Context, profileID int64) error {
	if _, ok := f.profiles[profileID]; !ok {
		return fmt.Errorf("%w: профиль %d", models.ErrNotFound, profileID)
	}
	for _, p := range f.profiles {
		p.IsDefault = false
	}
	f.profiles[profileID].IsDefault = true
	return nil
}

func (f *fakeRepo) SetForEvent(_ context.Context, profileID, eventID int64) error {
	if _, ok := f.profiles[profileID]; !ok {
		return fmt.Errorf("%w: профиль %d", models.ErrNotFound, profileID)
	}
	for _, p := range f.profiles {
		if p.EventID != nil && *p.EventID == eventID {
			p.EventID = nil
		}
	}
	f.profiles[profileID].EventID = &eventID
	return nil
}

func (f *fakeRepo) GetDefault(_ context.Context) (*models.DistributionProfile, error) {
	for _, p := range f.profiles {
		if p.IsDefault {
			copied := *p
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: профиль по умолчанию не назначен", models.ErrNotFound)
}

func (f *fakeRepo) GetForEvent(_ context.Context, eventID int64) (*models.DistributionProfile, error) {
	for _, p := range f.profiles {
		if p.EventID != nil && *p.EventID == eventID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: профиль события %d не задан", models.ErrNotFound, eventID)
}

// fakeLedger собирает проводки в память
type fakeLedger struct {
	entries []*models.LedgerEntry
}

func (f *fakeLedger) ReleaseFromEvent(_ context.Context, entryType models.LedgerEntryType, to int64, eventID int64, amount int64) error {
	if amount == 0 {
		return nil
	}
	f.entries = append(f.entries, &models.LedgerEntry{Type: entryType, ToAccountID: &to, EventID: &eventID, Amount: amount})
	return nil
}

func (f *fakeLedger) byType(entryType models.LedgerEntryType) []*models.LedgerEntry {
	var out []*models.LedgerEntry
	for _, e := range f.entries {
		if e.Type == entryType {
			out = append(out, e)
		}
	}
	return out
}

type fakeTx struct{}

func (fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeAuditRepo struct {
	records []*models.AuditRecord
}

func (f *fakeAuditRepo) Append(_ context.Context, record *models.AuditRecord) error {
	f.records = append(f.records, record)
	return nil
}

var admin = models.Identity{AccountID: 1, Role: models.RoleAdmin}

func newTestService() (*Service, *fakeRepo, *fakeLedger) {
	repo := newFakeRepo()
	ledger := &fakeLedger{}
	cfg := config.MarketConfig{
		PlatformCutA:     10,
		PlatformCutB:     5,
		MasterAccountID:  1,
		ReserveAccountID: 2,
	}
	trail := audit.NewTrail(&fakeAuditRepo{}, audit.NopPublisher{}, zap.NewNop())
	svc := NewService(repo, ledger, fakeTx{}, trail, cfg, zap.NewNop())
	return svc, repo, ledger
}

func defaultProfileRequest() *models.CreateProfileRequest {
	return &models.CreateProfileRequest{
		Name:       "Базовый",
		Recipients: []int64{100, 20, 1},
		Shares:     []int{7000, 2500, 500},
	}
}

func TestDistributeСнимаетОтчисленияИДелитОстаток(t *testing.T) {
	svc, _, ledger := newTestService()
	ctx := context.Background()

	profile, err := svc.CreateProfile(ctx, admin, defaultProfileRequest())
	require.NoError(t, err)
	require.NoError(t, svc.SetDefaultProfile(ctx, admin, profile.ID))

	// 10010: оба отчисления от полной суммы — A 10% = 1001, B 5% = 500
	// (floor), гибкий пул 8509: 70% = 5956 (floor), 25% = 2127 (floor),
	// 5% = 425 (floor), пыль 8509-5956-2127-425 = 1 достается
	// сборному счету (id 1)
	payouts, err := svc.Distribute(ctx, 7, 10010)
	require.NoError(t, err)
	require.Len(t, payouts, 3)
	assert.Equal(t, models.Payout{AccountID: 100, Amount: 5956}, payouts[0])
	assert.Equal(t, models.Payout{AccountID: 20, Amount: 2127}, payouts[1])
	assert.Equal(t, models.Payout{AccountID: 1, Amount: 426}, payouts[2])

	cuts := ledger.byType(models.EntryPlatformCut)
	require.Len(t, cuts, 2)
	assert.Equal(t, int64(1), *cuts[0].ToAccountID)
	assert.Equal(t, int64(1001), cuts[0].Amount)
	assert.Equal(t, int64(2), *cuts[1].ToAccountID)
	assert.Equal(t, int64(500), cuts[1].Amount)

	// Полная сумма разобрана без потерь: отчисления + пул = 10010
	var total int64
	for _, e := range ledger.entries {
		total += e.Amount
	}
	assert.Equal(t, int64(10010), total)
}

func TestDistributeОтчисленияОтПолнойСуммы(t *testing.T) {
	svc, _, ledger := newTestService()
	ctx := context.Background()

	profile, err := svc.CreateProfile(ctx, admin, &models.CreateProfileRequest{
		Name:       "Единственный получатель",
		Recipients: []int64{42},
		Shares:     []int{10000},
	})
	require.NoError(t, err)
	require.NoError(t, svc.SetDefaultProfile(ctx, admin, profile.ID))

	// 20: A 10% = 2, B 5% = 1 (от 20, а не от остатка 18), получателю 17
	payouts, err := svc.Distribute(ctx, 7, 20)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, models.Payout{AccountID: 42, Amount: 17}, payouts[0])

	cuts := ledger.byType(models.EntryPlatformCut)
	require.Len(t, cuts, 2)
	assert.Equal(t, int64(2), cuts[0].Amount)
	assert.Equal(t, int64(1), cuts[1].Amount)
}

func TestDistributeПредпочитаетПрофильСобытия(t *testing.T) {
	svc, _, ledger := newTestService()
	ctx := context.Background()

	base, err := svc.CreateProfile(ctx, admin, defaultProfileRequest())
	require.NoError(t, err)
	require.NoError(t, svc.SetDefaultProfile(ctx, admin, base.ID))

	override, err := svc.CreateProfile(ctx, admin, &models.CreateProfileRequest{
		Name:       "Для события",
		Recipients: []int64{777},
		Shares:     []int{10000},
	})
	require.NoError(t, err)
	require.NoError(t, svc.SetEventProfile(ctx, admin, override.ID, &models.SetEventProfileRequest{EventID: 7}))

	payouts, err := svc.Distribute(ctx, 7, 10000)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, int64(777), payouts[0].AccountID)
	assert.Equal(t, int64(8500), payouts[0].Amount)

	shares := ledger.byType(models.EntryRevenueShare)
	require.Len(t, shares, 1)
	assert.Equal(t, int64(777), *shares[0].ToAccountID)
}

func TestDistributeБезПрофилейОтказывает(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Distribute(context.Background(), 7, 10000)
	assert.True(t, models.IsState(err))
}

func TestDistributeНулеваяСуммаБезПроводок(t *testing.T) {
	svc, _, ledger := newTestService()

	payouts, err := svc.Distribute(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.Empty(t, payouts)
	assert.Empty(t, ledger.entries)
}

func TestCreateProfileПроверяетДоли(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		req  *models.CreateProfileRequest
	}{
		{"длины списков не совпадают", &models.CreateProfileRequest{Name: "П", Recipients: []int64{1, 2}, Shares: []int{10000}}},
		{"сумма долей не 10000", &models.CreateProfileRequest{Name: "П", Recipients: []int64{1, 2}, Shares: []int{5000, 4000}}},
		{"доля вне диапазона", &models.CreateProfileRequest{Name: "П", Recipients: []int64{1}, Shares: []int{10001}}},
		{"пустой профиль", &models.CreateProfileRequest{Name: "П"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProfile(ctx, admin, tt.req)
			require.Error(t, err)
			assert.True(t, models.IsValidation(err) || models.IsInvariant(err))
		})
	}
}

func TestПрофилиТолькоДляАдминистратора(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	user := models.Identity{AccountID: 50, Role: models.RoleUser}

	_, err := svc.CreateProfile(ctx, user, defaultProfileRequest())
	assert.True(t, models.IsUnauthorized(err))
	_, err = svc.UpdateProfile(ctx, user, 1, &models.UpdateProfileRequest{})
	assert.True(t, models.IsUnauthorized(err))
	assert.True(t, models.IsUnauthorized(svc.SetDefaultProfile(ctx, user, 1)))
	assert.True(t, models.IsUnauthorized(svc.SetEventProfile(ctx, user, 1, &models.SetEventProfileRequest{EventID: 1})))
}

func TestUpdateProfileЗаменяетДоли(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	profile, err := svc.CreateProfile(ctx, admin, defaultProfileRequest())
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, admin, profile.ID, &models.UpdateProfileRequest{
		Recipients: []int64{5, 6},
		Shares:     []int{6000, 4000},
	})
	require.NoError(t, err)
	require.Len(t, updated.Shares, 2)
	assert.Equal(t, models.BasisPoints(6000), repo.profiles[profile.ID].Shares[0].Share)

	_, err = svc.UpdateProfile(ctx, admin, profile.ID, &models.UpdateProfileRequest{
		Recipients: []int64{5},
		Shares:     []int{9999},
	})
	assert.True(t, models.IsInvariant(err))
}

func TestSetEventProfileПереносимоМеждуПрофилями(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	first, err := svc.CreateProfile(ctx, admin, defaultProfileRequest())
	require.NoError(t, err)
	second, err := svc.CreateProfile(ctx, admin, &models.CreateProfileRequest{
		Name:       "Второй",
		Recipients: []int64{9},
		Shares:     []int{10000},
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetEventProfile(ctx, admin, first.ID, &models.SetEventProfileRequest{EventID: 3}))
	require.NoError(t, svc.SetEventProfile(ctx, admin, second.ID, &models.SetEventProfileRequest{EventID: 3}))

	// У события не более одного переопределения
	assert.Nil(t, repo.profiles[first.ID].EventID)
	require.NotNil(t, repo.profiles[second.ID].EventID)
	assert.Equal(t, int64(3), *repo.profiles[second.ID].EventID)
}
