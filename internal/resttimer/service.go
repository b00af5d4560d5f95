package resttimer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmagedov/p2pdesk-backend/pkg/binance"
	"github.com/rmagedov/p2pdesk-backend/pkg/db/models"
	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
	pkgerrors "github.com/rmagedov/p2pdesk-backend/pkg/errors"
	"github.com/rmagedov/p2pdesk-backend/pkg/logger"
)

const startLockScope = "rest_timer_start"

// Phase is the desk-wide trading state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseResting Phase = "resting"
)

type exchangeClient interface {
	ListAds(ctx context.Context) ([]binance.Ad, error)
	SetAdsStatus(ctx context.Context, adNos []string, status enums.AdStatus) error
}

type startLocker interface {
	LockKey(scope string) string
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Status is what the terminal polls while the desk is resting.
type Status struct {
	Phase            Phase      `json:"phase"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RemainingSeconds int64      `json:"remaining_seconds"`
	DeactivatedAds   int        `json:"deactivated_ads"`
}

// EndResult reports a finished rest window. AdsReactivated false with a
// warning is a degraded success: trading state is already back to idle but
// the ads need manual attention.
type EndResult struct {
	AdsReactivated bool   `json:"ads_reactivated"`
	AdCount        int    `json:"ad_count"`
	Warning        string `json:"warning,omitempty"`
}

// Service controls the shared pause-all-ads window.
type Service interface {
	Start(ctx context.Context, operatorID uuid.UUID) (*Status, error)
	Status(ctx context.Context) (*Status, error)
	End(ctx context.Context, operatorID uuid.UUID) (*EndResult, error)
	ExpireOverdue(ctx context.Context) (int, error)
}

type service struct {
	repo            Repository
	exchange        exchangeClient
	locker          startLocker
	logger          *logger.Logger
	durationMinutes int
	lockTTL         time.Duration
	now             func() time.Time
}

// Params carries the service dependencies.
type Params struct {
	Repo            Repository
	Exchange        exchangeClient
	Locker          startLocker
	Logger          *logger.Logger
	DurationMinutes int
	LockTTL         time.Duration
	Now             func() time.Time
}

// NewService builds the rest timer service with the required dependencies.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("rest timer repository required")
	}
	if params.Exchange == nil {
		return nil, fmt.Errorf("exchange client required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("start locker required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DurationMinutes <= 0 {
		params.DurationMinutes = 60
	}
	if params.LockTTL <= 0 {
		params.LockTTL = 30 * time.Second
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:            params.Repo,
		exchange:        params.Exchange,
		locker:          params.Locker,
		logger:          params.Logger,
		durationMinutes: params.DurationMinutes,
		lockTTL:         params.LockTTL,
		now:             now,
	}, nil
}

// Start pauses the desk: every online ad goes offline in one batched exchange
// call, then the window row is written. The Redis lock serializes concurrent
// starts; the database partial unique index backstops it.
func (s *service) Start(ctx context.Context, operatorID uuid.UUID) (*Status, error) {
	if operatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operator id required")
	}
	ctx = s.logger.WithOperatorID(ctx, operatorID.String())

	lockKey := s.locker.LockKey(startLockScope)
	acquired, err := s.locker.SetNX(ctx, lockKey, operatorID.String(), s.lockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire start lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "another rest timer start is in progress")
	}
	defer func() {
		if err := s.locker.Del(ctx, lockKey); err != nil {
			s.logger.Warn(ctx, "release start lock failed")
		}
	}()

	now := s.now()
	var carried []string
	if active, err := s.repo.FindActive(ctx); err == nil {
		if !active.ExpiredAt(now) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "rest timer already running")
		}
		// Stale row from a missed expiry; close it and carry its recorded
		// ads into the new window so they come back online when it ends.
		if err := s.repo.Deactivate(ctx, active.ID, nil, now); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close stale rest timer")
		}
		carried = active.DeactivatedAdNos
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active rest timer")
	}

	ads, err := s.exchange.ListAds(ctx)
	if err != nil {
		return nil, err
	}
	adNos := mergeAdNos(onlineAdNos(ads), carried)

	// Ads first: if the exchange call fails nothing is persisted and the
	// desk stays fully online.
	if err := s.exchange.SetAdsStatus(ctx, adNos, enums.AdStatusOffline); err != nil {
		return nil, err
	}

	timer := &models.RestTimer{
		StartedAt:        now,
		DurationMinutes:  s.durationMinutes,
		StartedBy:        operatorID,
		IsActive:         true,
		DeactivatedAdNos: adNos,
	}
	if _, err := s.repo.Insert(ctx, timer); err != nil {
		s.logger.Error(ctx, "persist rest timer after ads went offline", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist rest timer")
	}

	s.logger.Info(s.logger.WithField(ctx, "ads_offline", len(adNos)), "rest timer started")
	return s.statusFor(timer, now), nil
}

// Status reports the current phase. An expired row that is still flagged
// active is flipped off best-effort so polling clients converge on idle.
func (s *service) Status(ctx context.Context) (*Status, error) {
	timer, err := s.repo.FindActive(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &Status{Phase: PhaseIdle}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rest timer")
	}

	now := s.now()
	if timer.ExpiredAt(now) {
		if err := s.repo.Deactivate(ctx, timer.ID, nil, now); err != nil {
			s.logger.Error(ctx, "flip expired rest timer", err)
		}
		return &Status{Phase: PhaseIdle}, nil
	}
	return s.statusFor(timer, now), nil
}

// End closes the window. The state flip must succeed; reactivating ads is
// best-effort and reported through the result instead of failing the call.
func (s *service) End(ctx context.Context, operatorID uuid.UUID) (*EndResult, error) {
	if operatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operator id required")
	}
	ctx = s.logger.WithOperatorID(ctx, operatorID.String())

	timer, err := s.repo.FindActive(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no rest timer running")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rest timer")
	}

	if err := s.repo.Deactivate(ctx, timer.ID, &operatorID, s.now()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close rest timer")
	}

	result := &EndResult{AdCount: len(timer.DeactivatedAdNos)}
	if err := s.exchange.SetAdsStatus(ctx, timer.DeactivatedAdNos, enums.AdStatusOnline); err != nil {
		s.logger.Error(ctx, "reactivate ads after rest", err)
		result.Warning = "rest ended but ads could not be reactivated; retry from the ads screen"
		return result, nil
	}
	result.AdsReactivated = len(timer.DeactivatedAdNos) > 0

	s.logger.Info(s.logger.WithField(ctx, "ads_online", len(timer.DeactivatedAdNos)), "rest timer ended")
	return result, nil
}

// ExpireOverdue flips every overdue window off and brings its recorded ads
// back online. Called from the background sweep.
func (s *service) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.now()
	timers, err := s.repo.FindActiveExpiredBefore(ctx, now)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overdue rest timers")
	}

	expired := 0
	for _, timer := range timers {
		if err := s.repo.Deactivate(ctx, timer.ID, nil, now); err != nil {
			s.logger.Error(ctx, "flip overdue rest timer", err)
			continue
		}
		expired++
		if err := s.exchange.SetAdsStatus(ctx, timer.DeactivatedAdNos, enums.AdStatusOnline); err != nil {
			s.logger.Error(ctx, "reactivate ads after overdue rest", err)
		}
	}
	return expired, nil
}

func (s *service) statusFor(timer *models.RestTimer, now time.Time) *Status {
	startedAt := timer.StartedAt
	expiresAt := timer.ExpiresAt()
	remaining := int64(expiresAt.Sub(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &Status{
		Phase:            PhaseResting,
		StartedAt:        &startedAt,
		ExpiresAt:        &expiresAt,
		RemainingSeconds: remaining,
		DeactivatedAds:   len(timer.DeactivatedAdNos),
	}
}

func onlineAdNos(ads []binance.Ad) []string {
	adNos := make([]string, 0, len(ads))
	for _, ad := range ads {
		if ad.Online() {
			adNos = append(adNos, ad.AdNo)
		}
	}
	return adNos
}

func mergeAdNos(online, carried []string) []string {
	if len(carried) == 0 {
		return online
	}
	seen := make(map[string]struct{}, len(online))
	for _, adNo := range online {
		seen[adNo] = struct{}{}
	}
	merged := online
	for _, adNo := range carried {
		if _, ok := seen[adNo]; ok {
			continue
		}
		merged = append(merged, adNo)
	}
	return merged
}
