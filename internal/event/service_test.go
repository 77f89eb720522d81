package event

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

// fakeEvents — реализация Repository в памяти
type fakeEvents struct {
	events map[int64]*models.Event
	nextID int64
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{events: make(map[int64]*models.Event), nextID: 1}
}

func (f *fakeEvents) Create(_ context.Context, event *models.Event) error {
	event.ID = f.nextID
	f.nextID++
	copied := *event
	f.events[event.ID] = &copied
	return nil
}

func (f *fakeEvents) GetByID(_ context.Context, id int64) (*models.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: событие %d", models.ErrNotFound, id)
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEvents) Update(_ context.Context, event *models.Event) error {
	stored, ok := f.events[event.ID]
	if !ok {
		return fmt.Errorf("%w: событие %d", models.ErrNotFound, event.ID)
	}
	copied := *event
	copied.NetWorth = stored.NetWorth
	f.events[event.ID] = &copied
	return nil
}

func (f *fakeEvents) UpdateStatus(_ context.Context, id int64, status models.EventStatus) error {
	e, ok := f.events[id]
	if !ok {
		return fmt.Errorf("%w: событие %d", models.ErrNotFound, id)
	}
	e.Status = status
	return nil
}

func (f *fakeEvents) AddNetWorth(_ context.Context, id int64, delta int64) error {
	e, ok := f.events[id]
	if !ok {
		return fmt.Errorf("%w: событие %d", models.ErrNotFound, id)
	}
	if e.NetWorth+delta < 0 {
		return fmt.Errorf("%w: отрицательный баланс события %d", models.ErrInvariant, id)
	}
	e.NetWorth += delta
	return nil
}

func (f *fakeEvents) ListActiveAtPlace(_ context.Context, placeID int64) ([]*models.Event, error) {
	var out []*models.Event
	for _, e := range f.events {
		if e.PlaceID == placeID && (e.Status == models.EventStatusSubmitted || e.Status == models.EventStatusApproved) {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

// fakePlaces — реализация PlaceRepository в памяти
type fakePlaces struct {
	places map[int64]*models.Place
}

func (f *fakePlaces) GetByID(_ context.Context, id int64) (*models.Place, error) {
	p, ok := f.places[id]
	if !ok {
		return nil, fmt.Errorf("%w: площадка %d", models.ErrNotFound, id)
	}
	copied := *p
	return &copied, nil
}

// fakeTickets — реализация TicketRepository в памяти
type fakeTickets struct {
	tickets []*models.Ticket
}

func (f *fakeTickets) ListTicketsByEvent(_ context.Context, eventID int64) ([]*models.Ticket, error) {
	var out []*models.Ticket
	for _, t := range f.tickets {
		if t.EventID == eventID {
			out = append(out, t)
		}
	}
	return out, nil
}

// fakeLedger собирает проводки в память и служит их читателем.
// failOn имитирует сбой движения средств заданного типа.
type fakeLedger struct {
	entries []*models.LedgerEntry
	failOn  models.LedgerEntryType
}

func (f *fakeLedger) Move(_ context.Context, entryType models.LedgerEntryType, from, to *int64, eventID *int64, amount int64) error {
	if entryType == f.failOn && f.failOn != "" {
		return fmt.Errorf("%w: недостаточно средств", models.ErrInvariant)
	}
	if amount == 0 {
		return nil
	}
	f.entries = append(f.entries, &models.LedgerEntry{
		Type:          entryType,
		FromAccountID: from,
		ToAccountID:   to,
		EventID:       eventID,
		Amount:        amount,
	})
	return nil
}

func (f *fakeLedger) HoldForEvent(ctx context.Context, entryType models.LedgerEntryType, from int64, eventID int64, amount int64) error {
	return f.Move(ctx, entryType, &from, nil, &eventID, amount)
}

func (f *fakeLedger) ReleaseFromEvent(ctx context.Context, entryType models.LedgerEntryType, to int64, eventID int64, amount int64) error {
	return f.Move(ctx, entryType, nil, &to, &eventID, amount)
}

func (f *fakeLedger) ListEntriesByEvent(_ context.Context, eventID int64) ([]*models.LedgerEntry, error) {
	var out []*models.LedgerEntry
	for _, e := range f.entries {
		if e.EventID != nil && *e.EventID == eventID {
			out = append(out, e)
		}
	}
	return out, nil
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

// fakeDistributor фиксирует вызов распределения
type fakeDistributor struct {
	eventID int64
	amount  int64
	called  bool
}

func (f *fakeDistributor) Distribute(_ context.Context, eventID int64, amount int64) ([]models.Payout, error) {
	f.called = true
	f.eventID = eventID
	f.amount = amount
	return []models.Payout{{AccountID: 1, Amount: amount}}, nil
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

type fixture struct {
	svc         *Service
	events      *fakeEvents
	places      *fakePlaces
	tickets     *fakeTickets
	ledger      *fakeLedger
	distributor *fakeDistributor
	audit       *fakeAuditRepo
	clock       time.Time
}

var (
	creator  = models.Identity{AccountID: 100, Role: models.RoleUser}
	provider = models.Identity{AccountID: 20, Role: models.RoleProvider}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	providerID := provider.AccountID
	f := &fixture{
		events: newFakeEvents(),
		places: &fakePlaces{places: map[int64]*models.Place{
			1: {
				ID:               1,
				ProviderID:       &providerID,
				MaxTickets:       200,
				MinTickets:       10,
				MinPrice:         500,
				MinDays:          1,
				DaysBeforeCancel: 7,
				DepositSize:      5000,
				Available:        true,
				Status:           models.PlaceStatusApproved,
			},
		}},
		tickets:     &fakeTickets{},
		ledger:      &fakeLedger{},
		distributor: &fakeDistributor{},
		audit:       &fakeAuditRepo{},
		clock:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	cfg := config.MarketConfig{
		SubmissionFee:    100,
		MaxAdvanceDays:   365,
		MasterAccountID:  1,
		ReserveAccountID: 2,
	}
	trail := audit.NewTrail(f.audit, audit.NopPublisher{}, zap.NewNop())
	f.svc = NewService(f.events, f.places, f.tickets, f.ledger, f.ledger, f.distributor, fakeTx{}, trail, cfg, zap.NewNop())
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) submitRequest() *models.SubmitEventRequest {
	return &models.SubmitEventRequest{
		PlaceID:    1,
		Price:      1000,
		StartDate:  f.clock.AddDate(0, 0, 30),
		Days:       2,
		ContentRef: "ipfs://qm123",
	}
}

func TestSubmitЭскроуируетВзносИЗалог(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.svc.Submit(ctx, creator, f.submitRequest())
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusSubmitted, event.Status)
	assert.Equal(t, int64(100), event.CreatorID)

	fees := f.ledger.byType(models.EntrySubmissionFeeHold)
	require.Len(t, fees, 1)
	assert.Equal(t, int64(100), fees[0].Amount)
	deposits := f.ledger.byType(models.EntryDepositHold)
	require.Len(t, deposits, 1)
	assert.Equal(t, int64(5000), deposits[0].Amount)

	require.Len(t, f.audit.records, 1)
	assert.Equal(t, "event.submit", f.audit.records[0].Operation)
}

func TestSubmitПроверяетПараметрыПлощадки(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*models.SubmitEventRequest)
	}{
		{"цена ниже минимальной", func(r *models.SubmitEventRequest) { r.Price = 499 }},
		{"короче минимальной длительности", func(r *models.SubmitEventRequest) { r.Days = 0 }},
		{"раньше окна уведомления", func(r *models.SubmitEventRequest) { r.StartDate = f.clock.AddDate(0, 0, 3) }},
		{"дальше горизонта подачи", func(r *models.SubmitEventRequest) { r.StartDate = f.clock.AddDate(0, 0, 400) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.submitRequest()
			tt.mutate(req)
			_, err := f.svc.Submit(ctx, creator, req)
			assert.True(t, models.IsValidation(err))
		})
	}
}

func TestSubmitОтклоняетПересечениеДат(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.submitRequest()
	first.StartDate = f.clock.AddDate(0, 0, 30)
	first.Days = 3
	_, err := f.svc.Submit(ctx, creator, first)
	require.NoError(t, err)

	// Диапазон [32, 34) пересекается с [30, 33)
	second := f.submitRequest()
	second.StartDate = f.clock.AddDate(0, 0, 32)
	second.Days = 2
	_, err = f.svc.Submit(ctx, creator, second)
	assert.True(t, models.IsValidation(err))

	// Смежный диапазон [33, 35) не пересекается
	third := f.submitRequest()
	third.StartDate = f.clock.AddDate(0, 0, 33)
	third.Days = 2
	_, err = f.svc.Submit(ctx, creator, third)
	assert.NoError(t, err)
}

func TestApproveТолькоПровайдерПлощадки(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event, err := f.svc.Submit(ctx, creator, f.submitRequest())
	require.NoError(t, err)

	other := models.Identity{AccountID: 77, Role: models.RoleProvider}
	_, err = f.svc.Approve(ctx, other, event.ID)
	assert.True(t, models.IsUnauthorized(err))

	approved, err := f.svc.Approve(ctx, provider, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusApproved, approved.Status)

	_, err = f.svc.Approve(ctx, provider, event.ID)
	assert.True(t, models.IsState(err))
}

func TestDeclineВозвращаетВзносИЗалог(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event, err := f.svc.Submit(ctx, creator, f.submitRequest())
	require.NoError(t, err)

	declined, err := f.svc.Decline(ctx, provider, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusDeclined, declined.Status)

	feeBack := f.ledger.byType(models.EntrySubmissionFeeBack)
	require.Len(t, feeBack, 1)
	assert.Equal(t, int64(100), feeBack[0].Amount)
	assert.Equal(t, creator.AccountID, *feeBack[0].ToAccountID)
	depositBack := f.ledger.byType(models.EntryDepositBack)
	require.Len(t, depositBack, 1)
	assert.Equal(t, int64(5000), depositBack[0].Amount)
	assert.Equal(t, creator.AccountID, *depositBack[0].ToAccountID)
}

func TestUpdateИсключаетСобственныйДиапазон(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event, err := f.svc.Submit(ctx, creator, f.submitRequest())
	require.NoError(t, err)

	// Сдвиг внутри собственного диапазона не считается пересечением
	req := &models.UpdateEventRequest{
		Price:      1200,
		StartDate:  event.StartDate.AddDate(0, 0, 1),
		Days:       event.Days,
		ContentRef: event.ContentRef,
	}
	updated, err := f.svc.Update(ctx, creator, event.ID, req)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), updated.Price)
}

func TestUpdateТолькоОрганизатор(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event, err := f.svc.Submit(ctx, creator, f.submitRequest())
	require.NoError(t, err)

	other := models.Identity{AccountID: 55, Role: models.RoleUser}
	req := &models.UpdateEventRequest{Price: 1200, StartDate: event.StartDate, Days: event.Days}
	_, err = f.svc.Update(ctx, other, event.ID, req)
	assert.True(t, models.IsUnauthorized(err))
}

func TestCancelВозвращаетБилетыИПередаетЗалог(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event, err := f.svc.Submit(ctx, creator, f.submitRequest())
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, provider, event.ID)
	require.NoError(t, err)

	f.tickets.tickets = []*models.Ticket{
		{ID: 1, EventID: event.ID, OwnerID: 201, Price: 1000},
		{ID: 2, EventID: event.ID, OwnerID: 202, Price: 900},
	}
	f.events.events[event.ID].NetWorth = 1800

	cancelled, err := f.svc.Cancel(ctx, creator, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCancelled, cancelled.Status)
	assert.Equal(t, int64(0), f.events.events[event.ID].NetWorth)

	refunds := f.ledger.byType(models.EntryTicketRefund)
	require.Len(t, refunds, 2)
	assert.Equal(t, int64(201), *refunds[0].ToAccountID)
	assert.Equal(t, int64(1000), refunds[0].Amount)
	assert.Equal(t, int64(202), *refunds[1].ToAccountID)
	assert.Equal(t, int64(900), refunds[1].Amount)

	seized := f.ledger.byType(models.EntryDepositSeize)
	require.Len(t, seized, 1)
	assert.Equal(t, provider.AccountID, *seized[0].ToAccountID)
	assert.Equal(t, int64(5000), seized[0].Amount)

	taken := f.ledger.byType(models.EntrySubmissionFeeTake)
	require.Len(t, taken, 1)
	assert.Equal(t, int64(1), *taken[0].ToAccountID)
}

func TestCancelЦеликомИлиНикак(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event, err := f.svc.Submit(ctx, creator, f.submitRequest())
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, provider, event.ID)
	require.NoError(t, err)

	f.tickets.tickets = []*models.Ticket{{ID: 1, EventID: event.ID, OwnerID: 201, Price: 1000}}
	f.ledger.failOn = models.EntryTicketRefund

	_, err = f.svc.Cancel(ctx, creator, event.ID)
	require.Error(t, err)
	// Откат транзакции: статус не изменился
	assert.Equal(t, models.EventStatusApproved, f.events.events[event.ID].Status)
}

func TestCancelТолькоИзApproved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event, err := f.svc.Submit(ctx, creator, f.submitRequest())
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, creator, event.ID)
	assert.True(t, models.IsState(err))
}

func TestCloseРаспределяетНакопленное(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event, err := f.svc.Submit(ctx, creator, f.submitRequest())
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, provider, event.ID)
	require.NoError(t, err)
	f.events.events[event.ID].NetWorth = 20000

	// До окончания события закрытие невозможно
	_, err = f.svc.Close(ctx, provider, event.ID)
	assert.True(t, models.IsState(err))

	f.clock = event.StartDate.AddDate(0, 0, event.Days+1)
	closed, err := f.svc.Close(ctx, provider, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusClosed, closed.Status)

	assert.True(t, f.distributor.called)
	assert.Equal(t, event.ID, f.distributor.eventID)
	assert.Equal(t, int64(20000), f.distributor.amount)
	assert.Equal(t, int64(0), f.events.events[event.ID].NetWorth)

	// Залог возвращается организатору, взнос остается платформе
	depositBack := f.ledger.byType(models.EntryDepositBack)
	require.Len(t, depositBack, 1)
	assert.Equal(t, creator.AccountID, *depositBack[0].ToAccountID)
	assert.Equal(t, int64(5000), depositBack[0].Amount)
	taken := f.ledger.byType(models.EntrySubmissionFeeTake)
	require.Len(t, taken, 1)
	assert.Equal(t, int64(100), taken[0].Amount)
}
