package main

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	errRoomNotFound    = errors.New("room not found")
	errRoomFull        = errors.New("room is full")
	errWrongState      = errors.New("action not allowed in the current game state")
	errNotHost         = errors.New("only the host may do that")
	errRoundOutOfRange = errors.New("round index out of range")
)

type roomState int

const (
	stateWaiting roomState = iota
	stateCountdown
	stateInRound
	stateGameOver
)

func (s roomState) String() string {
	switch s {
	case stateWaiting:
		return "waiting"
	case stateCountdown:
		return "countdown"
	case stateInRound:
		return "in_round"
	case stateGameOver:
		return "game_over"
	}
	return "unknown"
}

// Where an emitted event should be delivered. For audHost and audPlayer,
// event.to carries the target player handle.
type audience int

const (
	audAll audience = iota
	audHost
	audPlayer
)

type event struct {
	aud audience
	to  string
	msg any
}

type roomPlayer struct {
	ID    string
	Name  string
	Score int
	Slot  int
}

type roomOptions struct {
	countdown       time.Duration
	hostRestartOnly bool
}

// room is the state machine for one game: a host screen plus up to two
// players racing through the word bank. All transitions happen under mu,
// so the countdown timer firing is linearized with inbound requests for
// the same room. The emit callback must never call back into the room.
type room struct {
	id   string
	bank *wordBank
	opts roomOptions
	emit func(event)

	mu      sync.Mutex
	state   roomState
	hostID  string
	players []*roomPlayer
	round   int
	answer  string
	newGame bool
	closed  bool
	timer   *time.Timer
}

func newRoom(id, hostID string, bank *wordBank, opts roomOptions, emit func(event)) *room {
	return &room{
		id:     id,
		bank:   bank,
		opts:   opts,
		emit:   emit,
		state:  stateWaiting,
		hostID: hostID,
	}
}

func (r *room) host() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.hostID
}

func (r *room) currentState() roomState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

func (r *room) currentRound() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.round
}

func (r *room) playerScore(playerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p := r.playerLocked(playerID); p != nil {
		return p.Score
	}
	return 0
}

func (r *room) playerLocked(playerID string) *roomPlayer {
	for _, p := range r.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (r *room) playerInfosLocked() []playerInfo {
	infos := make([]playerInfo, 0, len(r.players))
	for _, p := range r.players {
		infos = append(infos, playerInfo{
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
			Slot:     p.Slot,
		})
	}
	return infos
}

// sessionInfo describes the room to a (re)connecting client.
func (r *room) sessionInfo(playerID string) sessionInfoMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	return sessionInfoMessage{
		Type:    "session_info",
		RoomID:  r.id,
		IsHost:  playerID == r.hostID,
		State:   r.state.String(),
		Round:   r.round,
		NewGame: r.newGame,
		Players: r.playerInfosLocked(),
	}
}

// join adds a player to a waiting room. Join order assigns the on-screen
// slot; the second join also signals the host that the room is full.
func (r *room) join(playerID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.state != stateWaiting {
		return errWrongState
	}
	if playerID == r.hostID {
		return errWrongState
	}
	if existing := r.playerLocked(playerID); existing != nil {
		// Reload of an already-joined player; just re-announce them.
		r.emit(event{aud: audAll, msg: playerJoinedMessage{
			Type:       "player_joined",
			RoomID:     r.id,
			PlayerID:   existing.ID,
			PlayerName: existing.Name,
			Slot:       existing.Slot,
		}})
		return nil
	}
	if len(r.players) >= 2 {
		return errRoomFull
	}

	slot := len(r.players)
	if name == "" {
		name = fmt.Sprintf("Player %d", slot+1)
	}

	p := &roomPlayer{
		ID:   playerID,
		Name: name,
		Slot: slot,
	}
	r.players = append(r.players, p)

	r.emit(event{aud: audAll, msg: playerJoinedMessage{
		Type:       "player_joined",
		RoomID:     r.id,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Slot:       p.Slot,
	}})

	if len(r.players) == 2 {
		r.emit(event{aud: audHost, to: r.hostID, msg: roomFullMessage{
			Type:   "room_full",
			RoomID: r.id,
		}})
	}

	return nil
}

// startCountdown is the host's half of the "full, then start" handshake.
// The fixed-length countdown transitions into round 0 on expiry.
func (r *room) startCountdown(callerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if callerID != r.hostID {
		return errNotHost
	}
	if r.closed || r.state != stateWaiting || len(r.players) != 2 {
		return errWrongState
	}

	r.state = stateCountdown
	r.emit(event{aud: audAll, msg: countdownStartedMessage{
		Type:    "countdown_started",
		Seconds: int(r.opts.countdown / time.Second),
	}})

	r.timer = time.AfterFunc(r.opts.countdown, r.countdownExpired)

	return nil
}

func (r *room) countdownExpired() {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Torn down or reset while the timer was in flight.
	if r.closed || r.state != stateCountdown {
		return
	}

	r.beginRoundLocked(0)
}

func (r *room) beginRoundLocked(index int) {
	w, err := r.bank.wordForRound(index)
	if err != nil {
		r.endGameLocked()
		return
	}

	r.round = index
	r.answer = w.Answer
	r.state = stateInRound

	r.emit(event{aud: audAll, msg: roundDataMessage{
		Type:  "round_data",
		Round: index,
		Word:  w.Word,
		List:  w.List,
	}})
}

// submitAnswer scores a player's submission against the in-flight round.
// Submissions for any other round index are stale and dropped without a
// score change or an event. Matching is case-sensitive exact.
func (r *room) submitAnswer(playerID string, round int, answer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.state != stateInRound {
		return errWrongState
	}
	if round != r.round {
		return nil
	}

	p := r.playerLocked(playerID)
	if p == nil {
		return nil
	}

	if answer != r.answer {
		p.Score -= 3
		r.emit(event{aud: audAll, msg: scoreUpdateMessage{
			Type:       "score_update",
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Score:      p.Score,
			Round:      r.round,
			Correct:    false,
		}})
		return nil
	}

	p.Score += 5
	r.emit(event{aud: audAll, msg: scoreUpdateMessage{
		Type:       "score_update",
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Score:      p.Score,
		Round:      r.round,
		Correct:    true,
	}})

	r.round++
	if r.round >= r.bank.roundCount() {
		r.endGameLocked()
	} else {
		r.beginRoundLocked(r.round)
	}

	return nil
}

// endGameLocked reports the strictly-higher-scoring player, or an explicit
// tie when the scores are exactly equal.
func (r *room) endGameLocked() {
	r.state = stateGameOver

	msg := gameOverMessage{
		Type:   "game_over",
		RoomID: r.id,
		Scores: r.playerInfosLocked(),
	}

	switch {
	case len(r.players) < 2:
		if len(r.players) == 1 {
			msg.Winner = r.players[0].Name
		}
	case r.players[0].Score == r.players[1].Score:
		msg.Tie = true
	case r.players[0].Score > r.players[1].Score:
		msg.Winner = r.players[0].Name
	default:
		msg.Winner = r.players[1].Name
	}

	r.emit(event{aud: audAll, msg: msg})
}

// restart reuses a finished room for another game: scores and round index
// reset, room identifier and host retained, players kept in their slots.
func (r *room) restart(callerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.state != stateGameOver {
		return errWrongState
	}
	if callerID != r.hostID {
		if r.opts.hostRestartOnly || r.playerLocked(callerID) == nil {
			return errNotHost
		}
	}

	for _, p := range r.players {
		p.Score = 0
	}
	r.round = 0
	r.answer = ""
	r.newGame = true
	r.state = stateWaiting

	r.emit(event{aud: audAll, msg: roomResetMessage{
		Type:   "room_reset",
		RoomID: r.id,
	}})

	return nil
}

// playerLeft handles a player's disconnect. Before the game is underway the
// slot is freed again; a countdown with a missing player is abandoned back
// to the waiting state. Mid-game departures keep their scoreboard entry.
func (r *room) playerLeft(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerLocked(playerID)
	if p == nil || r.closed {
		return
	}

	if r.state != stateWaiting && r.state != stateCountdown {
		return
	}

	if r.state == stateCountdown {
		r.stopTimerLocked()
		r.state = stateWaiting
	}

	dst := r.players[:0]
	for _, other := range r.players {
		if other.ID == playerID {
			continue
		}
		other.Slot = len(dst)
		dst = append(dst, other)
	}
	r.players = dst

	r.emit(event{aud: audAll, msg: playerLeftMessage{
		Type:       "player_left",
		RoomID:     r.id,
		PlayerName: p.Name,
	}})
}

func (r *room) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// close marks the room dead and cancels any pending countdown. Further
// transitions fail with errWrongState.
func (r *room) close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.stopTimerLocked()
}
