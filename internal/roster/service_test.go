package roster

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rmagedov/p2pdesk-backend/pkg/db/models"
	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
	pkgerrors "github.com/rmagedov/p2pdesk-backend/pkg/errors"
)

type stubRosterRepo struct {
	operators  []models.Operator
	listErr    error
	increments []uuid.UUID
	decrements []uuid.UUID
	shifts     map[uuid.UUID]bool
}

func (s *stubRosterRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRosterRepo) ListActive(ctx context.Context) ([]models.Operator, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.operators, nil
}

func (s *stubRosterRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Operator, error) {
	for i := range s.operators {
		if s.operators[i].ID == id {
			return &s.operators[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRosterRepo) FindByEmail(ctx context.Context, email string) (*models.Operator, error) {
	panic("not implemented")
}

func (s *stubRosterRepo) Create(ctx context.Context, operator *models.Operator) (*models.Operator, error) {
	panic("not implemented")
}

func (s *stubRosterRepo) UpdateShift(ctx context.Context, id uuid.UUID, onShift bool) error {
	if s.shifts == nil {
		s.shifts = make(map[uuid.UUID]bool)
	}
	s.shifts[id] = onShift
	return nil
}

func (s *stubRosterRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	panic("not implemented")
}

func (s *stubRosterRepo) IncrementActiveOrders(ctx context.Context, id uuid.UUID) error {
	s.increments = append(s.increments, id)
	return nil
}

func (s *stubRosterRepo) DecrementActiveOrders(ctx context.Context, id uuid.UUID) error {
	s.decrements = append(s.decrements, id)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubClaimer struct {
	claimed []string
	err     error
}

func (s *stubClaimer) ClaimOrder(ctx context.Context, tx *gorm.DB, orderNumber string, operatorID uuid.UUID, at time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.claimed = append(s.claimed, orderNumber)
	return nil
}

func newTestService(t *testing.T, repo *stubRosterRepo, claimer *stubClaimer) Service {
	t.Helper()
	svc, err := NewService(Params{
		Repo:    repo,
		Tx:      stubTxRunner{},
		Claimer: claimer,
		Now:     func() time.Time { return time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc
}

func operatorFixture(name string, spec enums.Specialization, onShift bool, activeCount int) models.Operator {
	return models.Operator{
		ID:             uuid.New(),
		DisplayName:    name,
		Specialization: spec,
		OnShift:        onShift,
		IsActive:       true,
		ActiveOrderCount: activeCount,
	}
}

func TestEligibleOperatorsAppliesFilters(t *testing.T) {
	offShift := operatorFixture("alina", enums.SpecializationBoth, false, 0)
	salesOnly := operatorFixture("boris", enums.SpecializationSales, true, 1)
	purchaseOnly := operatorFixture("vera", enums.SpecializationPurchase, true, 2)
	generalist := operatorFixture("grisha", enums.SpecializationBoth, true, 3)

	repo := &stubRosterRepo{operators: []models.Operator{offShift, salesOnly, purchaseOnly, generalist}}
	svc := newTestService(t, repo, &stubClaimer{})

	// BUY orders go to purchase-side operators.
	pool, err := svc.EligibleOperators(context.Background(), Criteria{
		Side:                   enums.TradeTypeBuy,
		ConsiderShift:          true,
		ConsiderSpecialization: true,
	})
	require.NoError(t, err)
	require.Len(t, pool, 2)
	assert.Equal(t, "vera", pool[0].DisplayName)
	assert.Equal(t, "grisha", pool[1].DisplayName)

	// With filters off, only off-shift exclusion is skipped too.
	pool, err = svc.EligibleOperators(context.Background(), Criteria{Side: enums.TradeTypeBuy})
	require.NoError(t, err)
	assert.Len(t, pool, 4)
}

func TestEligibleOperatorsSizeRange(t *testing.T) {
	small := operatorFixture("small", enums.SpecializationBoth, true, 0)
	small.MinOrderSize = decimal.NewFromInt(100)
	small.MaxOrderSize = decimal.NewFromInt(1000)
	unbounded := operatorFixture("unbounded", enums.SpecializationBoth, true, 1)

	repo := &stubRosterRepo{operators: []models.Operator{small, unbounded}}
	svc := newTestService(t, repo, &stubClaimer{})

	pool, err := svc.EligibleOperators(context.Background(), Criteria{
		Side:              enums.TradeTypeSell,
		OrderTotal:        decimal.NewFromInt(5000),
		ConsiderSizeRange: true,
	})
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, "unbounded", pool[0].DisplayName)
}

func TestEligibleOperatorsExchangeMapping(t *testing.T) {
	mapped := operatorFixture("mapped", enums.SpecializationBoth, true, 0)
	mapped.ExchangeUIDs = []string{"uid-1", "uid-2"}
	unmapped := operatorFixture("unmapped", enums.SpecializationBoth, true, 1)

	repo := &stubRosterRepo{operators: []models.Operator{mapped, unmapped}}
	svc := newTestService(t, repo, &stubClaimer{})

	pool, err := svc.EligibleOperators(context.Background(), Criteria{
		Side:                    enums.TradeTypeSell,
		CounterpartyUID:         "uid-2",
		ConsiderExchangeMapping: true,
	})
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, "mapped", pool[0].DisplayName)

	// Orders without a counterparty UID carry nothing to match on; the
	// mapping filter must not empty the pool for them.
	pool, err = svc.EligibleOperators(context.Background(), Criteria{
		Side:                    enums.TradeTypeSell,
		ConsiderExchangeMapping: true,
	})
	require.NoError(t, err)
	require.Len(t, pool, 2)
	assert.Equal(t, "mapped", pool[0].DisplayName)
	assert.Equal(t, "unmapped", pool[1].DisplayName)

	// A UID that matches nobody still filters everyone out.
	pool, err = svc.EligibleOperators(context.Background(), Criteria{
		Side:                    enums.TradeTypeSell,
		CounterpartyUID:         "uid-unknown",
		ConsiderExchangeMapping: true,
	})
	require.NoError(t, err)
	assert.Empty(t, pool)
}

func TestAssignOrderClaimsAndBumpsWorkload(t *testing.T) {
	operator := operatorFixture("dima", enums.SpecializationBoth, true, 0)
	repo := &stubRosterRepo{operators: []models.Operator{operator}}
	claimer := &stubClaimer{}
	svc := newTestService(t, repo, claimer)

	require.NoError(t, svc.AssignOrder(context.Background(), "20250701-001", operator.ID))
	assert.Equal(t, []string{"20250701-001"}, claimer.claimed)
	assert.Equal(t, []uuid.UUID{operator.ID}, repo.increments)
}

func TestAssignOrderUnknownOperator(t *testing.T) {
	repo := &stubRosterRepo{}
	svc := newTestService(t, repo, &stubClaimer{})

	err := svc.AssignOrder(context.Background(), "20250701-001", uuid.New())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
	assert.Empty(t, repo.increments)
}

func TestAssignOrderValidatesInput(t *testing.T) {
	svc := newTestService(t, &stubRosterRepo{}, &stubClaimer{})

	err := svc.AssignOrder(context.Background(), " ", uuid.New())
	require.Error(t, err)

	err = svc.AssignOrder(context.Background(), "20250701-001", uuid.Nil)
	require.Error(t, err)
}

func TestReleaseOrder(t *testing.T) {
	repo := &stubRosterRepo{}
	svc := newTestService(t, repo, &stubClaimer{})

	operatorID := uuid.New()
	require.NoError(t, svc.ReleaseOrder(context.Background(), operatorID))
	assert.Equal(t, []uuid.UUID{operatorID}, repo.decrements)

	require.Error(t, svc.ReleaseOrder(context.Background(), uuid.Nil))
}

func TestSetShift(t *testing.T) {
	repo := &stubRosterRepo{}
	svc := newTestService(t, repo, &stubClaimer{})

	operatorID := uuid.New()
	require.NoError(t, svc.SetShift(context.Background(), operatorID, true))
	assert.True(t, repo.shifts[operatorID])

	require.Error(t, svc.SetShift(context.Background(), uuid.Nil, true))
}
