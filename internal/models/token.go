package models

import (
	"time"

	"github.com/google/uuid"
)

// Claims decoded from a verified access or refresh token
type Claims struct {
	ID    uuid.UUID
	Kind  Kind
	Email string // access token only
	Name  string // access token only
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issues by TokenManager, AuthService
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// Session is the login result: redacted principal and fresh tokens
type Session struct {
	Principal Principal
	Tokens    TokenPair
}
