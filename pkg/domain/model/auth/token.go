package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/types"
)

const tokenTTL = 24 * time.Hour

// TokenID identifies one login session document
type TokenID string

// TokenSecret is the secret half of the session cookie pair
type TokenSecret string

// NewTokenID generates a new random token ID
func NewTokenID() TokenID {
	return TokenID(uuid.New().String())
}

// NewTokenSecret generates a new random token secret
func NewTokenSecret() TokenSecret {
	return TokenSecret(uuid.New().String())
}

func (id TokenID) String() string {
	return string(id)
}

// Validate checks if the token ID is valid
func (id TokenID) Validate() error {
	if id == "" {
		return goerr.New("token ID is empty")
	}
	return nil
}

func (s TokenSecret) String() string {
	return string(s)
}

// Token is a login session issued after a successful sign-in. It is stored
// as one document and referenced by the session_id/session_secret cookie
// pair.
type Token struct {
	ID        TokenID      `firestore:"id"`
	Secret    TokenSecret  `firestore:"secret" masq:"secret"`
	UserID    types.UserID `firestore:"user_id"`
	Sub       string       `firestore:"sub"`
	Email     string       `firestore:"email"`
	Name      string       `firestore:"name"`
	ExpiresAt time.Time    `firestore:"expires_at"`
	CreatedAt time.Time    `firestore:"created_at"`
}

// NewToken creates a session token for the given user identity
func NewToken(userID types.UserID, sub, email, name string) *Token {
	now := time.Now()
	return &Token{
		ID:        NewTokenID(),
		Secret:    NewTokenSecret(),
		UserID:    userID,
		Sub:       sub,
		Email:     email,
		Name:      name,
		ExpiresAt: now.Add(tokenTTL),
		CreatedAt: now,
	}
}

// Validate checks if the token is valid
func (t *Token) Validate() error {
	if err := t.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid token ID")
	}
	if t.Secret == "" {
		return goerr.New("token secret is empty")
	}
	if err := t.UserID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid user ID")
	}
	if t.Sub == "" {
		return goerr.New("token sub is empty")
	}
	return nil
}

// IsExpired reports whether the session has passed its expiry
func (t *Token) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

type ctxTokenKey struct{}

// ContextWithToken embeds the session token into the request context
func ContextWithToken(ctx context.Context, token *Token) context.Context {
	return context.WithValue(ctx, ctxTokenKey{}, token)
}

// TokenFromContext retrieves the session token from the request context
func TokenFromContext(ctx context.Context) (*Token, bool) {
	token, ok := ctx.Value(ctxTokenKey{}).(*Token)
	return token, ok
}
