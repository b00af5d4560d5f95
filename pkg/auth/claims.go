package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	OperatorID uuid.UUID
	Role       enums.OperatorRole
}

// AccessTokenClaims represents the typed JWT issued to desk clients.
type AccessTokenClaims struct {
	OperatorID uuid.UUID          `json:"operator_id"`
	Role       enums.OperatorRole `json:"role"`
	jwt.RegisteredClaims
}
