package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
)

// LoginRequest carries the credentials posted to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// OperatorSummary is the operator profile returned with the token.
type OperatorSummary struct {
	ID             uuid.UUID            `json:"id"`
	Email          string               `json:"email"`
	DisplayName    string               `json:"display_name"`
	Role           enums.OperatorRole   `json:"role"`
	Specialization enums.Specialization `json:"specialization"`
	OnShift        bool                 `json:"on_shift"`
}

// LoginResponse is the successful login payload.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Operator    OperatorSummary `json:"operator"`
}
