package main

import (
	"crypto/rand"
	"sync"
	"time"
)

// roomRegistry holds a set of hubs keyed by room ID, so each $path/$roomid
// is its own isolated session.
type roomRegistry struct {
	mu          sync.Mutex
	hubs        map[string]*hub
	bank        *wordBank
	idleTimeout time.Duration
}

func newRoomRegistry(cfg *Config, idleTimeout time.Duration) *roomRegistry {
	rg := &roomRegistry{
		hubs:        make(map[string]*hub),
		bank:        newWordBank(),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go rg.reaperLoop(cfg)
	}
	return rg
}

// createRoom allocates a fresh room ID, constructs an empty room owned by
// hostID, and starts its hub.
func (rg *roomRegistry) createRoom(cfg *Config, hostID string) string {
	roomID := rg.newRoomID()

	h := newHub(cfg, roomID, hostID, rg.bank)

	rg.mu.Lock()
	rg.hubs[roomID] = h
	rg.mu.Unlock()

	go h.run(cfg, rg)

	return roomID
}

func (rg *roomRegistry) getRoom(roomID string) (*hub, error) {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	h, ok := rg.hubs[roomID]
	if !ok {
		return nil, errRoomNotFound
	}
	return h, nil
}

// removeRoom is idempotent; removing an unknown room ID is a no-op.
func (rg *roomRegistry) removeRoom(roomID string) {
	rg.mu.Lock()
	h, ok := rg.hubs[roomID]
	if ok {
		delete(rg.hubs, roomID)
	}
	rg.mu.Unlock()

	if ok {
		h.closeAll()
	}
}

// newRoomID generates a crypto-random room ID and ensures it doesn't
// collide with a currently active room.
func (rg *roomRegistry) newRoomID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		rg.mu.Lock()
		_, exists := rg.hubs[id]
		rg.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes rooms that have been idle longer than
// idleTimeout.
func (rg *roomRegistry) reaperLoop(cfg *Config) {
	ticker := time.NewTicker(rg.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-rg.idleTimeout)

		rg.mu.Lock()
		var stale []*hub
		for id, h := range rg.hubs {
			if h.idle(cutoff) {
				delete(rg.hubs, id)
				stale = append(stale, h)
				logf(cfg, "GAMES: Reaped idle room %s", id)
			}
		}
		rg.mu.Unlock()

		for _, h := range stale {
			go h.closeAll()
		}
	}
}
