package protocol

// Client → Server
const (
	EventRoomCreate   = "room:create"
	EventRoomJoin     = "room:join"
	EventRoomLeave    = "room:leave"
	EventRoomList     = "room:list"
	EventRoomSync     = "room:sync"
	EventRoomSettings = "room:settings"
	EventPlayerReady  = "player:ready"
	EventGameStart    = "game:start"
	EventGameVote     = "game:vote"
	EventGameAction   = "game:action"
	EventGameAdvance  = "game:advance"
	EventGameReset    = "game:reset"
	EventChatMessage  = "chat:message"
)

// Server → Client
const (
	EventRoomUpdated      = "room:updated"
	EventRoomClosed       = "room:closed"
	EventGameStarted      = "game:started"
	EventPhaseChanged     = "game:phaseChanged"
	EventTimer            = "game:timer"
	EventVoteCast         = "game:voteCast"
	EventPlayerEliminated = "game:playerEliminated"
	EventInvestigation    = "game:investigation"
	EventGameEnded        = "game:ended"
	// chat:message is also pushed with a ChatMessagePayload.
)
