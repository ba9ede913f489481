package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dom/mafia-server/internal/auth"
	"github.com/google/uuid"
)

const maxNameLength = 32

var ErrInvalidName = errors.New("name must be between 1 and 32 characters")

// Guest is the identity behind a guest session.
type Guest struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type AuthResult struct {
	User        Guest     `json:"user"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// AuthService hands out guest identities. There are no accounts; a token is
// the whole identity.
type AuthService struct {
	issuer *auth.Issuer
	now    func() time.Time
}

func NewAuthService(issuer *auth.Issuer) *AuthService {
	return &AuthService{issuer: issuer, now: time.Now}
}

func (s *AuthService) Guest(ctx context.Context, name string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, ErrInvalidName
	}

	user := Guest{ID: uuid.New(), Name: name}
	expiresAt := s.now().Add(s.issuer.TTL())
	token, err := s.issuer.Issue(user.ID, user.Name)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, AccessToken: token, ExpiresAt: expiresAt}, nil
}
