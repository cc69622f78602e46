package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vyronamart/groupbuy-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	ParticipantID uuid.UUID
	Role          enums.ActorRole
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	ParticipantID uuid.UUID       `json:"participant_id"`
	Role          enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
