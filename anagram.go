// Scramblebox Anagram Race
//
// A host creates a room and shares its URL (or QR code) with two players.
// Each round the host screen shows a word; the players see a list of
// candidate words and race to pick the one that is an anagram of it.
// A correct pick is worth 5 points and advances the game to the next round;
// a wrong pick costs 3 points. After ten rounds the higher score wins.
//
// Features:
// - WebSockets per room ID: /anagram/:roomid and /anagram/:roomid/ws
// - Room creator (by cookie) is the host; the host screen is not a player
// - Two-phase start: host is told the room is full, then starts the countdown
// - Late answers for an already-scored round are ignored, never scored
// - Finished rooms can be reset for another game, keeping their room ID
// - Players identified by cookie (playerID)
// - Rooms auto-reaped after configurable idle timeout
// - Random 8-char room IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current room, backed by go-qrcode

package main

import (
	_ "embed"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type clientMessage struct {
	Type       string `json:"type"`                  // "join", "start", "answer", "restart"
	PlayerName string `json:"player_name,omitempty"` // join
	Round      int    `json:"round"`                 // answer
	Answer     string `json:"answer,omitempty"`      // answer
}

// playerInfo is the wire form of one scoreboard entry.
type playerInfo struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Slot     int    `json:"slot"`
}

// sessionInfoMessage is sent immediately on connect so the client knows
// its role and the room's current state.
type sessionInfoMessage struct {
	Type    string       `json:"type"` // "session_info"
	RoomID  string       `json:"room_id"`
	IsHost  bool         `json:"is_host"`
	State   string       `json:"state"`
	Round   int          `json:"round"`
	NewGame bool         `json:"new_game"`
	Players []playerInfo `json:"players"`
}

type playerJoinedMessage struct {
	Type       string `json:"type"` // "player_joined"
	RoomID     string `json:"room_id"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Slot       int    `json:"slot"`
}

type playerLeftMessage struct {
	Type       string `json:"type"` // "player_left"
	RoomID     string `json:"room_id"`
	PlayerName string `json:"player_name"`
}

// Sent only to the host once the second player has joined.
type roomFullMessage struct {
	Type   string `json:"type"` // "room_full"
	RoomID string `json:"room_id"`
}

type countdownStartedMessage struct {
	Type    string `json:"type"` // "countdown_started"
	Seconds int    `json:"seconds"`
}

type roundDataMessage struct {
	Type  string   `json:"type"` // "round_data"
	Round int      `json:"round"`
	Word  string   `json:"word"`
	List  []string `json:"list"`
}

type scoreUpdateMessage struct {
	Type       string `json:"type"` // "score_update"
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Score      int    `json:"score"`
	Round      int    `json:"round"`
	Correct    bool   `json:"correct"`
}

type gameOverMessage struct {
	Type   string       `json:"type"` // "game_over"
	RoomID string       `json:"room_id"`
	Scores []playerInfo `json:"scores"`
	Winner string       `json:"winner,omitempty"`
	Tie    bool         `json:"tie"`
}

type roomResetMessage struct {
	Type   string `json:"type"` // "room_reset"
	RoomID string `json:"room_id"`
}

type roomClosedMessage struct {
	Type    string `json:"type"` // "room_closed"
	Message string `json:"message"`
}

// errorMessage is sent to the offending client for any rejected transition.
type errorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

type client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type wsRequest struct {
	client *client
	msg    clientMessage
}

// hub is the per-room gateway: it owns the websocket clients, feeds inbound
// messages into the room one at a time, and fans room events back out.
type hub struct {
	id   string
	room *room

	register chan *client
	unreg    chan *client
	requests chan wsRequest
	done     chan struct{}

	mu         sync.Mutex
	clients    map[*client]bool
	createdAt  time.Time
	lastActive time.Time
	closed     bool
}

func newHub(cfg *Config, roomID, hostID string, bank *wordBank) *hub {
	now := time.Now()
	h := &hub{
		id:         roomID,
		register:   make(chan *client),
		unreg:      make(chan *client),
		requests:   make(chan wsRequest),
		done:       make(chan struct{}),
		clients:    make(map[*client]bool),
		createdAt:  now,
		lastActive: now,
	}

	h.room = newRoom(roomID, hostID, bank, roomOptions{
		countdown:       cfg.countdown,
		hostRestartOnly: cfg.hostRestartOnly,
	}, h.deliver)

	return h
}

func (h *hub) run(cfg *Config, rg *roomRegistry) {
	for {
		select {
		case c := <-h.register:
			h.touch()

			info := h.room.sessionInfo(c.playerID)

			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

			c.send <- info

		case c := <-h.unreg:
			h.touch()

			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			remaining := len(h.clients)
			h.mu.Unlock()

			if c.playerID == h.room.host() {
				// No host migration: the room dies with its host.
				h.deliver(event{aud: audAll, msg: roomClosedMessage{
					Type:    "room_closed",
					Message: "The host has left; this room is closed.",
				}})
				logf(cfg, "GAMES: Host left %s, closing room", h.id)
				rg.removeRoom(h.id)
				return
			}

			h.room.playerLeft(c.playerID)

			if remaining == 0 {
				rg.removeRoom(h.id)
				return
			}

		case req := <-h.requests:
			h.touch()
			h.dispatch(cfg, req)

		case <-h.done:
			return
		}
	}
}

// dispatch routes one inbound message into the corresponding room call and
// relays any rejection back to the offending client only.
func (h *hub) dispatch(cfg *Config, req wsRequest) {
	c := req.client
	msg := req.msg

	var err error

	switch msg.Type {
	case "join":
		err = h.room.join(c.playerID, msg.PlayerName)
		if err == nil {
			logf(cfg, "GAMES: Player %q joined %s", msg.PlayerName, h.id)
		}
	case "start":
		err = h.room.startCountdown(c.playerID)
		if err == nil {
			logf(cfg, "GAMES: Countdown started in %s", h.id)
		}
	case "answer":
		err = h.room.submitAnswer(c.playerID, msg.Round, msg.Answer)
	case "restart":
		err = h.room.restart(c.playerID)
		if err == nil {
			logf(cfg, "GAMES: Room %s reset for a new game", h.id)
		}
	default:
		// ignore unknown types
	}

	if err != nil {
		h.sendTo(c, errorMessage{
			Type:    "error",
			Message: err.Error(),
		})
	}
}

// deliver fans one room event out to its audience. Clients with a full send
// buffer are dropped, as their write pump is no longer keeping up.
func (h *hub) deliver(ev event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if ev.aud != audAll && c.playerID != ev.to {
			continue
		}

		select {
		case c.send <- ev.msg:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *hub) sendTo(c *client, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) touch() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()
}

func (h *hub) idle(cutoff time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.lastActive.Before(cutoff)
}

// closeAll tears the hub down: the room's countdown is cancelled and every
// client is disconnected. Safe to call more than once.
func (h *hub) closeAll() {
	h.room.close()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	close(h.done)

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "scramblebox_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// WebSocket handler that resolves the hub for :roomid. Unknown or already
// reaped rooms are a 404, not a fresh room.
func serveWSForRegistry(cfg *Config, rg *roomRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		h, err := rg.getRoom(roomID)
		if err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		c := &client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		select {
		case h.register <- c:
		case <-h.done:
			_ = conn.Close()
			return
		}

		go c.writePump()
		c.readPump(h)
	}
}

func (c *client) readPump(h *hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.requests <- wsRequest{client: c, msg: msg}:
		case <-h.done:
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current room URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("roomid")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:roomid/qr; strip trailing "/qr" to get the room URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ---- Static file paths ----

//go:embed anagram/index.html
var indexHTML []byte

//go:embed anagram/app.css
var anagramCSS []byte

//go:embed anagram/app.js
var anagramJS []byte

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

func getCssHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(anagramCSS)
	}
}

func getJsHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(anagramJS)
	}
}

// redirectNewRoom handles GET /path by creating a new room owned by the
// requesting cookie and redirecting to /path/:roomid.
func redirectNewRoom(cfg *Config, path string, rg *roomRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		hostID := getOrSetPlayerID(w, r)
		if hostID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		roomID := rg.createRoom(cfg, hostID)
		logf(cfg, "GAMES: Created room %s/%s", path, roomID)
		http.Redirect(w, r, cfg.prefix+path+"/"+roomID, http.StatusTemporaryRedirect)
	}
}

// registerAnagramGame sets up routes so that:
//   - $path                  → creates a new room (8-char ID) and redirects
//   - $path/:roomid          → HTML client
//   - $path/:roomid/ws       → WebSocket for that room
//   - $path/:roomid/qr       → PNG QR code for that room URL
func registerAnagramGame(cfg *Config, path string, mux *httprouter.Router) {
	rg := newRoomRegistry(cfg, cfg.sessionTimeout)

	// Root path → create room, redirect to it
	mux.GET(cfg.prefix+path, redirectNewRoom(cfg, path, rg))

	// Per-room client view (HTML)
	mux.GET(cfg.prefix+path+"/:roomid", getIndexHandler(cfg))

	// Shared assets (no roomid in route)
	mux.GET(cfg.prefix+"/assets/anagram/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/anagram/app.js", getJsHandler(cfg))

	// Per-room websocket
	mux.GET(cfg.prefix+path+"/:roomid/ws", serveWSForRegistry(cfg, rg))

	// Per-room QR code
	mux.GET(cfg.prefix+path+"/:roomid/qr", qrHandler)
}
