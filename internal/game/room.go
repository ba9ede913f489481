package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dom/mafia-server/internal/domain"
	"github.com/dom/mafia-server/internal/protocol"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxChatLength = 500
	systemSender  = "system"
)

// Identity is an authenticated player as seen by a room.
type Identity struct {
	ID   uuid.UUID
	Name string
}

type result struct {
	val interface{}
	err error
}

type request struct {
	op    func() (interface{}, error)
	reply chan result
}

// Room owns one game's state. Every mutation runs on the goroutine started
// by Run, in the order requests arrive.
type Room struct {
	id       uuid.UUID
	code     string
	opts     Options
	log      *zap.Logger
	archiver Archiver
	onClose  func(*Room)

	// Owned by Run.
	hostID    uuid.UUID
	settings  domain.Settings
	phase     domain.Phase
	round     int
	players   map[uuid.UUID]*domain.Player
	order     []uuid.UUID
	detached  map[uuid.UUID]bool
	window    *PhaseWindow
	timer     *PhaseTimer
	events    *EventLog
	winner    domain.Winner
	startedAt time.Time
	ttl       Timer
	closing   bool
	reason    string

	broker  *Broker
	inbox   chan request
	expired chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newRoom(id uuid.UUID, code string, host Identity, settings domain.Settings, opts Options, archiver Archiver, log *zap.Logger, onClose func(*Room)) *Room {
	r := &Room{
		id:       id,
		code:     code,
		opts:     opts,
		log:      log.With(zap.String("room", code)),
		archiver: archiver,
		onClose:  onClose,
		hostID:   host.ID,
		settings: settings,
		phase:    domain.PhaseLobby,
		players:  make(map[uuid.UUID]*domain.Player),
		detached: make(map[uuid.UUID]bool),
		window:   NewPhaseWindow(domain.PhaseLobby),
		timer:    NewPhaseTimer(opts.Clock, opts.TickInterval),
		events:   NewEventLog(),
		broker:   NewBroker(opts.EventBuffer, opts.Clock),
		inbox:    make(chan request),
		expired:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	r.broker.onDrop = func(sub *Subscription, e Event) {
		r.log.Debug("subscriber buffer full, event dropped",
			zap.String("player", sub.PlayerID.String()),
			zap.String("event", e.Name),
			zap.Uint64("seq", e.Seq))
	}
	r.addPlayer(host)
	r.players[host.ID].IsHost = true
	return r
}

func (r *Room) ID() uuid.UUID {
	return r.id
}

func (r *Room) Code() string {
	return r.code
}

// Done is closed once the room has been torn down.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// Run processes requests and timer ticks until the room closes.
func (r *Room) Run() {
	defer r.teardown()

	for {
		select {
		case <-r.stop:
			r.reason = "shutdown"
			return

		case req := <-r.inbox:
			val, err := req.op()
			req.reply <- result{val: val, err: err}
			if r.closing {
				return
			}

		case <-r.timer.C():
			r.handleTick()
			if r.closing {
				return
			}

		case <-r.expired:
			if r.phase == domain.PhaseGameEnd {
				r.reason = "game ended"
				return
			}
		}
	}
}

// Stop tears the room down and waits for Run to exit.
func (r *Room) Stop() {
	r.once.Do(func() { close(r.stop) })
	<-r.done
}

func (r *Room) teardown() {
	r.timer.Stop()
	if r.ttl != nil {
		r.ttl.Stop()
	}
	r.broker.Publish(protocol.EventRoomClosed, protocol.RoomClosedPayload{RoomID: r.id, Reason: r.reason}, uuid.Nil)
	r.broker.Close()
	close(r.done)
	r.log.Info("room closed", zap.String("reason", r.reason))
	if r.onClose != nil {
		r.onClose(r)
	}
}

// do runs op on the room goroutine and waits for its result.
func (r *Room) do(ctx context.Context, op func() (interface{}, error)) (interface{}, error) {
	req := request{op: op, reply: make(chan result, 1)}
	select {
	case r.inbox <- req:
	case <-r.done:
		return nil, domain.ErrRoomClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res.val, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Room) exec(ctx context.Context, op func() error) error {
	_, err := r.do(ctx, func() (interface{}, error) { return nil, op() })
	return err
}

// Subscribe attaches a listener for playerID's view of the room.
func (r *Room) Subscribe(playerID uuid.UUID) *Subscription {
	return r.broker.Subscribe(playerID)
}

// Join adds who to the lobby. A current member joining again gets a fresh
// snapshot and no second seat.
func (r *Room) Join(ctx context.Context, who Identity) (*protocol.RoomSnapshot, error) {
	v, err := r.do(ctx, func() (interface{}, error) {
		if _, ok := r.players[who.ID]; ok {
			delete(r.detached, who.ID)
			return r.snapshot(who.ID), nil
		}
		if r.phase != domain.PhaseLobby {
			return nil, domain.ErrAlreadyStarted
		}
		if len(r.players) >= r.settings.MaxPlayers {
			return nil, domain.ErrRoomFull
		}
		r.addPlayer(who)
		r.systemMessage(fmt.Sprintf("%s joined the room", r.players[who.ID].Name))
		r.publishSnapshots()
		return r.snapshot(who.ID), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*protocol.RoomSnapshot), nil
}

// Leave removes id from the room. The room closes when its last member leaves.
func (r *Room) Leave(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, func() error {
		return r.removePlayer(id)
	})
}

// Detach handles a dropped connection. Outside a running game the seat is
// released; during a game the player keeps their seat and may rejoin. Seats
// still unclaimed when the game ends are released then.
func (r *Room) Detach(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, func() error {
		if _, ok := r.players[id]; !ok {
			return nil
		}
		if r.phase == domain.PhaseLobby || r.phase == domain.PhaseGameEnd {
			return r.removePlayer(id)
		}
		r.detached[id] = true
		return nil
	})
}

func (r *Room) SetReady(ctx context.Context, id uuid.UUID, ready bool) error {
	return r.exec(ctx, func() error {
		p, ok := r.players[id]
		if !ok {
			return domain.ErrNotInRoom
		}
		if r.phase != domain.PhaseLobby || p.IsReady == ready {
			return nil
		}
		p.IsReady = ready
		r.publishSnapshots()
		return nil
	})
}

// UpdateSettings replaces the room settings. Host only, lobby only.
func (r *Room) UpdateSettings(ctx context.Context, id uuid.UUID, s domain.Settings) error {
	return r.exec(ctx, func() error {
		if _, ok := r.players[id]; !ok {
			return domain.ErrNotInRoom
		}
		if id != r.hostID {
			return domain.ErrNotHost
		}
		if r.phase != domain.PhaseLobby {
			return domain.ErrAlreadyStarted
		}
		s = s.WithDefaults(r.opts.Defaults)
		if err := s.Validate(); err != nil {
			return err
		}
		if s.MaxPlayers < len(r.players) {
			return fmt.Errorf("%w: room already has %d players", domain.ErrInvalidSettings, len(r.players))
		}
		r.settings = s
		r.systemMessage("The host updated the room settings")
		r.publishSnapshots()
		return nil
	})
}

// Start deals roles and begins the first day.
func (r *Room) Start(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, func() error {
		if _, ok := r.players[id]; !ok {
			return domain.ErrNotInRoom
		}
		if id != r.hostID {
			return domain.ErrNotHost
		}
		if r.phase != domain.PhaseLobby {
			return domain.ErrAlreadyStarted
		}
		if n, need := len(r.players), domain.MinPlayers(r.settings.MaxPlayers); n < need {
			return fmt.Errorf("%w: %d of %d required", domain.ErrNotEnoughPlayers, n, need)
		}
		for _, p := range r.players {
			if !p.IsReady {
				return domain.ErrNotAllReady
			}
		}
		roles, err := domain.AssignRoles(r.order, r.settings.Roles, r.opts.Rand())
		if err != nil {
			return err
		}

		r.transition(domain.PhaseStarting)
		for pid, role := range roles {
			p := r.players[pid]
			p.Role = role
			p.State = domain.PlayerAlive
		}
		r.round = 1
		r.winner = ""
		r.startedAt = r.opts.Clock.Now()
		r.systemMessage("The game has started")
		for _, pid := range r.order {
			r.broker.Publish(protocol.EventGameStarted, protocol.GameStartedPayload{PlayerRoles: r.visibleRoles(pid)}, pid)
		}
		r.log.Info("game started", zap.Int("players", len(r.players)))

		r.transition(domain.PhaseDayDiscussion)
		return nil
	})
}

// Vote records voter's day ballot against target.
func (r *Room) Vote(ctx context.Context, voter, target uuid.UUID) error {
	return r.exec(ctx, func() error {
		if r.phase != domain.PhaseDayVoting || !r.alive(voter) {
			return domain.ErrIneligibleVoter
		}
		if !r.alive(target) {
			return domain.ErrInvalidTarget
		}
		r.window.CastVote(voter, target)
		r.broker.Publish(protocol.EventVoteCast, protocol.VoteCastPayload{VoterID: voter, TargetID: target}, uuid.Nil)
		return nil
	})
}

// Act records actor's night action.
func (r *Room) Act(ctx context.Context, actor uuid.UUID, kind domain.ActionKind, target uuid.UUID) error {
	return r.exec(ctx, func() error {
		if !kind.IsValid() {
			return domain.ErrInvalidAction
		}
		if r.phase != domain.PhaseNightAction || !r.alive(actor) {
			return domain.ErrIneligibleActor
		}
		role := r.players[actor].Role
		if !role.Grants(kind) {
			return domain.ErrIneligibleActor
		}
		if !r.alive(target) {
			return domain.ErrInvalidTarget
		}
		switch kind {
		case domain.ActionEliminate:
			if r.players[target].Role.IsMafia() {
				return fmt.Errorf("%w: mafia cannot target mafia", domain.ErrInvalidTarget)
			}
		case domain.ActionInvestigate:
			if target == actor {
				return fmt.Errorf("%w: cannot investigate yourself", domain.ErrInvalidTarget)
			}
		}
		r.window.SetAction(actor, domain.Action{Kind: kind, Target: target})
		return nil
	})
}

// Advance ends the current timed phase early, as if its timer expired.
func (r *Room) Advance(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, func() error {
		if id != r.hostID {
			return domain.ErrNotHost
		}
		if !r.phase.Timed() {
			return domain.ErrWrongPhase
		}
		r.expirePhase()
		return nil
	})
}

// Reset returns a finished room to the lobby.
func (r *Room) Reset(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, func() error {
		if id != r.hostID {
			return domain.ErrNotHost
		}
		if r.phase != domain.PhaseGameEnd {
			return domain.ErrWrongPhase
		}
		if r.ttl != nil {
			r.ttl.Stop()
			r.ttl = nil
		}
		for _, p := range r.players {
			p.Role = domain.RoleNone
			p.State = domain.PlayerAlive
			p.IsReady = false
		}
		r.round = 0
		r.winner = ""
		r.transition(domain.PhaseLobby)
		r.systemMessage("The host reset the room")
		r.publishSnapshots()
		return nil
	})
}

// Chat appends a player message to the room log.
func (r *Room) Chat(ctx context.Context, id uuid.UUID, content string) (domain.Message, error) {
	v, err := r.do(ctx, func() (interface{}, error) {
		p, ok := r.players[id]
		if !ok {
			return nil, domain.ErrNotInRoom
		}
		content = strings.TrimSpace(content)
		if content == "" {
			return nil, domain.ErrEmptyMessage
		}
		if utf8.RuneCountInString(content) > maxChatLength {
			content = string([]rune(content)[:maxChatLength])
		}
		sender := p.ID
		return r.appendMessage(domain.Message{SenderID: &sender, Sender: p.Name, Content: content}), nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	return v.(domain.Message), nil
}

// Snapshot returns the room as viewer sees it. uuid.Nil gives the public view.
func (r *Room) Snapshot(ctx context.Context, viewer uuid.UUID) (*protocol.RoomSnapshot, error) {
	v, err := r.do(ctx, func() (interface{}, error) {
		return r.snapshot(viewer), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*protocol.RoomSnapshot), nil
}

// --- owned by Run ---

func (r *Room) addPlayer(who Identity) {
	name := strings.TrimSpace(who.Name)
	if name == "" {
		name = "Player " + who.ID.String()[:4]
	}
	r.players[who.ID] = &domain.Player{
		ID:       who.ID,
		Name:     name,
		State:    domain.PlayerAlive,
		JoinedAt: r.opts.Clock.Now(),
	}
	r.order = append(r.order, who.ID)
}

func (r *Room) removePlayer(id uuid.UUID) error {
	p, ok := r.players[id]
	if !ok {
		return domain.ErrNotInRoom
	}
	delete(r.players, id)
	delete(r.detached, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.window.Drop(id)

	if len(r.order) == 0 {
		r.closing = true
		r.reason = "empty"
		return nil
	}

	r.systemMessage(fmt.Sprintf("%s left the room", p.Name))
	if id == r.hostID {
		r.hostID = r.order[0]
		next := r.players[r.hostID]
		next.IsHost = true
		r.systemMessage(fmt.Sprintf("%s is now the host", next.Name))
	}
	// A living player walking out can hand the game to the other side.
	if r.phase.Timed() && p.IsAlive() && r.checkWinner() {
		return nil
	}
	r.publishSnapshots()
	return nil
}

func (r *Room) alive(id uuid.UUID) bool {
	p, ok := r.players[id]
	return ok && p.IsAlive()
}

// transition moves to next and reports false, leaving the room untouched,
// when the phase table forbids the move.
func (r *Room) transition(next domain.Phase) bool {
	if !r.phase.CanTransitionTo(next) {
		r.log.Error("illegal phase transition",
			zap.String("from", string(r.phase)),
			zap.String("to", string(next)))
		return false
	}
	r.phase = next
	r.window = NewPhaseWindow(next)
	r.timer.Stop()

	limit := next.Duration(r.settings)
	if next.Timed() {
		r.timer.Start(time.Duration(limit) * time.Second)
	}
	r.broker.Publish(protocol.EventPhaseChanged, protocol.PhaseChangedPayload{
		Phase:     next,
		TimeLimit: limit,
		Round:     r.round,
	}, uuid.Nil)

	switch next {
	case domain.PhaseDayDiscussion:
		r.systemMessage(fmt.Sprintf("Day %d: discussion", r.round))
	case domain.PhaseDayVoting:
		r.systemMessage(fmt.Sprintf("Day %d: voting is open", r.round))
	case domain.PhaseNightAction:
		r.systemMessage(fmt.Sprintf("Night %d falls", r.round))
	}
	if next.InGame() {
		r.publishSnapshots()
	}
	return true
}

func (r *Room) handleTick() {
	if !r.phase.Timed() {
		r.timer.Stop()
		return
	}
	r.broker.Publish(protocol.EventTimer, protocol.TimerPayload{
		Phase:         r.phase,
		TimeRemaining: r.timer.Remaining(),
	}, uuid.Nil)
	if r.timer.Expired() {
		r.expirePhase()
	}
}

// expirePhase resolves whatever the current phase collected and moves on.
func (r *Room) expirePhase() {
	switch r.phase {
	case domain.PhaseDayDiscussion:
		r.transition(domain.PhaseDayVoting)
	case domain.PhaseDayVoting:
		r.resolveDay()
	case domain.PhaseNightAction:
		r.resolveNight()
	}
}

func (r *Room) resolveDay() {
	if target, ok := domain.TallyVotes(r.window.Votes()); ok {
		r.eliminate(target, protocol.CauseVote)
	} else {
		r.systemMessage("The town could not agree. No one was eliminated")
	}
	if r.checkWinner() {
		return
	}
	r.transition(domain.PhaseNightAction)
}

func (r *Room) resolveNight() {
	roles := make(map[uuid.UUID]domain.Role, len(r.players))
	for id, p := range r.players {
		roles[id] = p.Role
	}
	out := domain.ResolveNight(r.window.Actions(), roles)

	for _, inv := range out.Investigations {
		r.broker.Publish(protocol.EventInvestigation, protocol.InvestigationPayload{
			TargetID: inv.Target,
			Role:     inv.Role,
		}, inv.Detective)
	}
	if out.Killed {
		r.eliminate(out.Target, protocol.CauseNight)
	} else {
		r.systemMessage("No one died during the night")
	}
	if r.checkWinner() {
		return
	}
	r.round++
	r.transition(domain.PhaseDayDiscussion)
}

func (r *Room) eliminate(id uuid.UUID, cause string) {
	p, ok := r.players[id]
	if !ok || !p.IsAlive() {
		return
	}
	p.State = domain.PlayerDead
	r.broker.Publish(protocol.EventPlayerEliminated, protocol.PlayerEliminatedPayload{
		PlayerID: id,
		Role:     p.Role,
		Cause:    cause,
	}, uuid.Nil)

	if cause == protocol.CauseVote {
		r.systemMessage(fmt.Sprintf("%s was voted out. They were %s", p.Name, p.Role))
	} else {
		r.systemMessage(fmt.Sprintf("%s was killed during the night. They were %s", p.Name, p.Role))
	}
}

func (r *Room) checkWinner() bool {
	alive := make([]domain.Role, 0, len(r.players))
	for _, p := range r.players {
		if p.IsAlive() {
			alive = append(alive, p.Role)
		}
	}
	winner, ok := domain.CheckWinner(alive)
	if !ok {
		return false
	}
	r.endGame(winner)
	return true
}

func (r *Room) endGame(winner domain.Winner) {
	if !r.transition(domain.PhaseGameEnd) {
		return
	}
	r.winner = winner

	roles := make(map[uuid.UUID]domain.Role, len(r.players))
	for id, p := range r.players {
		roles[id] = p.Role
	}
	r.broker.Publish(protocol.EventGameEnded, protocol.GameEndedPayload{Winner: winner, Roles: roles}, uuid.Nil)
	if winner == domain.WinnerMafia {
		r.systemMessage("The mafia wins")
	} else {
		r.systemMessage("The villagers win")
	}
	r.publishSnapshots()
	r.log.Info("game ended", zap.String("winner", string(winner)), zap.Int("rounds", r.round))

	r.archive()
	for _, id := range append([]uuid.UUID(nil), r.order...) {
		if r.detached[id] {
			r.removePlayer(id)
		}
	}
	if r.closing {
		return
	}
	if r.opts.EndedRoomTTL > 0 {
		r.ttl = r.opts.Clock.AfterFunc(r.opts.EndedRoomTTL, func() {
			select {
			case r.expired <- struct{}{}:
			default:
			}
		})
	}
}

func (r *Room) systemMessage(content string) {
	r.appendMessage(domain.Message{Sender: systemSender, Content: content, IsGameEvent: true})
}

func (r *Room) appendMessage(msg domain.Message) domain.Message {
	msg = r.events.Append(msg, r.opts.Clock.Now())
	r.broker.Publish(protocol.EventChatMessage, protocol.ChatMessagePayload{Message: msg}, uuid.Nil)
	return msg
}

// publishSnapshots sends every member their own view of the room.
func (r *Room) publishSnapshots() {
	for _, id := range r.order {
		r.broker.Publish(protocol.EventRoomUpdated, protocol.RoomUpdatedPayload{Room: r.snapshot(id)}, id)
	}
}

// canSee reports whether viewer may learn target's role.
func (r *Room) canSee(viewer uuid.UUID, target *domain.Player) bool {
	if r.phase == domain.PhaseGameEnd || viewer == target.ID || target.State == domain.PlayerDead {
		return true
	}
	v, ok := r.players[viewer]
	return ok && v.Role.IsMafia() && target.Role.IsMafia()
}

func (r *Room) visibleRoles(viewer uuid.UUID) map[uuid.UUID]domain.Role {
	out := make(map[uuid.UUID]domain.Role)
	for _, p := range r.players {
		if p.Role != domain.RoleNone && r.canSee(viewer, p) {
			out[p.ID] = p.Role
		}
	}
	return out
}

func (r *Room) snapshot(viewer uuid.UUID) *protocol.RoomSnapshot {
	snap := &protocol.RoomSnapshot{
		ID:         r.id,
		Code:       r.code,
		HostID:     r.hostID,
		Phase:      r.phase,
		Round:      r.round,
		Settings:   r.settings,
		Players:    make([]domain.Player, 0, len(r.order)),
		Winner:     r.winner,
		Messages:   r.events.Recent(r.opts.HistorySize),
		MinPlayers: domain.MinPlayers(r.settings.MaxPlayers),
		Seq:        r.broker.Seq(),
	}
	for _, id := range r.order {
		p := *r.players[id]
		p.IsHost = id == r.hostID
		if !r.canSee(viewer, &p) {
			p.Role = domain.RoleNone
		}
		snap.Players = append(snap.Players, p)
	}
	if r.phase.Timed() {
		left := r.timer.Remaining()
		snap.TimeRemaining = &left
	}
	if r.phase == domain.PhaseDayVoting {
		snap.Votes = r.window.Votes()
	}
	if a, ok := r.window.ActionOf(viewer); ok {
		snap.MyAction = &a
	}
	return snap
}
