package protocol

import (
	"github.com/dom/mafia-server/internal/domain"
	"github.com/google/uuid"
)

// Request payloads

type CreateRoomRequest struct {
	Settings domain.Settings `json:"settings"`
}

type JoinRoomRequest struct {
	Code string `json:"code"`
}

type UpdateSettingsRequest struct {
	Settings domain.Settings `json:"settings"`
}

type ReadyRequest struct {
	IsReady bool `json:"isReady"`
}

type VoteRequest struct {
	TargetID uuid.UUID `json:"targetId"`
}

type ActionRequest struct {
	Action   domain.ActionKind `json:"action"`
	TargetID uuid.UUID         `json:"targetId"`
}

type ChatRequest struct {
	Content string `json:"content"`
}

// Reply payloads

type CreateRoomResponse struct {
	RoomID uuid.UUID     `json:"roomId"`
	Code   string        `json:"code"`
	Room   *RoomSnapshot `json:"room"`
}

// RoomSummary describes a lobby that still has free seats.
type RoomSummary struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	HostName   string    `json:"hostName"`
	Players    int       `json:"players"`
	MaxPlayers int       `json:"maxPlayers"`
}

type RoomListResponse struct {
	Rooms []RoomSummary `json:"rooms"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// RoomSnapshot is a viewer's authoritative picture of a room. Roles are
// filtered for the viewer it was built for.
type RoomSnapshot struct {
	ID            uuid.UUID               `json:"id"`
	Code          string                  `json:"code"`
	HostID        uuid.UUID               `json:"hostId"`
	Phase         domain.Phase            `json:"phase"`
	Round         int                     `json:"round"`
	Settings      domain.Settings         `json:"settings"`
	Players       []domain.Player         `json:"players"`
	TimeRemaining *int                    `json:"timeRemaining"`
	Votes         map[uuid.UUID]uuid.UUID `json:"votes,omitempty"`
	MyAction      *domain.Action          `json:"myAction,omitempty"`
	Winner        domain.Winner           `json:"winner,omitempty"`
	Messages      []domain.Message        `json:"messages"`
	MinPlayers    int                     `json:"minPlayers"`
	Seq           uint64                  `json:"seq"`
}

// Push payloads

type RoomUpdatedPayload struct {
	Room *RoomSnapshot `json:"room"`
}

type RoomClosedPayload struct {
	RoomID uuid.UUID `json:"roomId"`
	Reason string    `json:"reason"`
}

type GameStartedPayload struct {
	PlayerRoles map[uuid.UUID]domain.Role `json:"playerRoles"`
}

type PhaseChangedPayload struct {
	Phase     domain.Phase `json:"phase"`
	TimeLimit int          `json:"timeLimit"`
	Round     int          `json:"round"`
}

type TimerPayload struct {
	Phase         domain.Phase `json:"phase"`
	TimeRemaining int          `json:"timeRemaining"`
}

type VoteCastPayload struct {
	VoterID  uuid.UUID `json:"voterId"`
	TargetID uuid.UUID `json:"targetId"`
}

type PlayerEliminatedPayload struct {
	PlayerID uuid.UUID   `json:"playerId"`
	Role     domain.Role `json:"role"`
	Cause    string      `json:"cause"`
}

const (
	CauseVote  = "vote"
	CauseNight = "night"
)

type InvestigationPayload struct {
	TargetID uuid.UUID   `json:"targetId"`
	Role     domain.Role `json:"role"`
}

type GameEndedPayload struct {
	Winner domain.Winner             `json:"winner"`
	Roles  map[uuid.UUID]domain.Role `json:"roles"`
}

type ChatMessagePayload struct {
	Message domain.Message `json:"message"`
}
