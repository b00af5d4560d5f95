package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/rmagedov/p2pdesk-backend/pkg/auth"
	"github.com/rmagedov/p2pdesk-backend/pkg/config"
	"github.com/rmagedov/p2pdesk-backend/pkg/db/models"
	pkgerrors "github.com/rmagedov/p2pdesk-backend/pkg/errors"
	"github.com/rmagedov/p2pdesk-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

type operatorRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Operator, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

type service struct {
	operators operatorRepository
	jwtCfg    config.JWTConfig
	now       func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	OperatorRepo operatorRepository
	JWTConfig    config.JWTConfig
	Now          func() time.Time
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.OperatorRepo == nil {
		return nil, fmt.Errorf("operator repository is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		operators: params.OperatorRepo,
		jwtCfg:    params.JWTConfig,
		now:       now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	operator, err := s.operators.FindByEmail(ctx, email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load operator")
	}
	if !operator.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	ok, err := security.VerifyPassword(req.Password, operator.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	now := s.now()
	token, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		OperatorID: operator.ID,
		Role:       operator.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	// Best-effort; a failed timestamp write must not block the login.
	_ = s.operators.UpdateLastLogin(ctx, operator.ID, now)

	return &LoginResponse{
		AccessToken: token,
		ExpiresAt:   now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute),
		Operator: OperatorSummary{
			ID:             operator.ID,
			Email:          operator.Email,
			DisplayName:    operator.DisplayName,
			Role:           operator.Role,
			Specialization: operator.Specialization,
			OnShift:        operator.OnShift,
		},
	}, nil
}
