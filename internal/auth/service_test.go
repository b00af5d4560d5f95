package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rmagedov/p2pdesk-backend/pkg/config"
	"github.com/rmagedov/p2pdesk-backend/pkg/db/models"
	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
	pkgerrors "github.com/rmagedov/p2pdesk-backend/pkg/errors"
	"github.com/rmagedov/p2pdesk-backend/pkg/security"
)

type stubOperatorRepo struct {
	operator   *models.Operator
	lastLogins []uuid.UUID
}

func (s *stubOperatorRepo) FindByEmail(ctx context.Context, email string) (*models.Operator, error) {
	if s.operator == nil || s.operator.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.operator, nil
}

func (s *stubOperatorRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogins = append(s.lastLogins, id)
	return nil
}

func testHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	})
	require.NoError(t, err)
	return hash
}

func newAuthService(t *testing.T, repo operatorRepository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		OperatorRepo: repo,
		JWTConfig: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "p2pdesk",
			ExpirationMinutes: 60,
		},
		Now: func() time.Time { return time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc
}

func activeOperator(t *testing.T, email, password string) *models.Operator {
	return &models.Operator{
		ID:             uuid.New(),
		Email:          email,
		PasswordHash:   testHash(t, password),
		DisplayName:    "Dima",
		Role:           enums.OperatorRoleOperator,
		Specialization: enums.SpecializationBoth,
		IsActive:       true,
	}
}

func TestLoginSuccess(t *testing.T) {
	operator := activeOperator(t, "dima@desk.example", "hunter2hunter2")
	repo := &stubOperatorRepo{operator: operator}

	resp, err := newAuthService(t, repo).Login(context.Background(), LoginRequest{
		Email:    " Dima@desk.example ",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, operator.ID, resp.Operator.ID)
	assert.Equal(t, enums.OperatorRoleOperator, resp.Operator.Role)
	assert.Equal(t, []uuid.UUID{operator.ID}, repo.lastLogins)
	assert.Equal(t, time.Date(2025, 7, 1, 13, 0, 0, 0, time.UTC), resp.ExpiresAt)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := &stubOperatorRepo{operator: activeOperator(t, "dima@desk.example", "hunter2hunter2")}

	_, err := newAuthService(t, repo).Login(context.Background(), LoginRequest{
		Email:    "dima@desk.example",
		Password: "wrong",
	})
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
	assert.Empty(t, repo.lastLogins)
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	_, err := newAuthService(t, &stubOperatorRepo{}).Login(context.Background(), LoginRequest{
		Email:    "ghost@desk.example",
		Password: "whatever",
	})
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
	assert.Equal(t, invalidCredentialsMessage, appErr.Message())
}

func TestLoginDeactivatedOperator(t *testing.T) {
	operator := activeOperator(t, "dima@desk.example", "hunter2hunter2")
	operator.IsActive = false
	repo := &stubOperatorRepo{operator: operator}

	_, err := newAuthService(t, repo).Login(context.Background(), LoginRequest{
		Email:    "dima@desk.example",
		Password: "hunter2hunter2",
	})
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestLoginValidatesInput(t *testing.T) {
	svc := newAuthService(t, &stubOperatorRepo{})

	_, err := svc.Login(context.Background(), LoginRequest{Password: "x"})
	require.Error(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "a@b.c"})
	require.Error(t, err)
}
