package service

import (
	"github.com/dom/mafia-server/internal/auth"
	"github.com/dom/mafia-server/internal/repository"
)

type Services struct {
	Auth *AuthService
	// Game is nil when no archive database is configured.
	Game *GameService
}

func NewServices(repos *repository.Repositories, issuer *auth.Issuer) *Services {
	s := &Services{Auth: NewAuthService(issuer)}
	if repos != nil {
		s.Game = NewGameService(repos.GameRecord)
	}
	return s
}
