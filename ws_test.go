package main

import (
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil discards messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, wanted string) map[string]any {
	t.Helper()

	for {
		msg := readMessage(t, conn)
		if msg["type"] == wanted {
			return msg
		}
	}
}

func TestWebSocketGameFlow(t *testing.T) {
	cfg := &Config{countdown: time.Second}
	mux := httprouter.New()
	registerAnagramGame(cfg, "/anagram", mux)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	// Creating a room redirects to its fresh ID and assigns the host cookie.
	noRedirect := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := noRedirect.Get(srv.URL + "/anagram")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	roomID := path.Base(resp.Header.Get("Location"))
	require.Len(t, roomID, 8)

	hostCookie := ""
	for _, c := range resp.Cookies() {
		if c.Name == playerCookieName {
			hostCookie = c.Name + "=" + c.Value
		}
	}
	require.NotEmpty(t, hostCookie)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/anagram/" + roomID + "/ws"

	dial := func(cookie string) *websocket.Conn {
		hdr := http.Header{}
		if cookie != "" {
			hdr.Set("Cookie", cookie)
		}
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, hdr)
		require.NoError(t, err)
		return conn
	}

	host := dial(hostCookie)
	defer host.Close()

	info := readMessage(t, host)
	assert.Equal(t, "session_info", info["type"])
	assert.Equal(t, true, info["is_host"])
	assert.Equal(t, "waiting", info["state"])

	alice := dial("")
	defer alice.Close()
	aliceInfo := readMessage(t, alice)
	assert.Equal(t, "session_info", aliceInfo["type"])
	assert.Equal(t, false, aliceInfo["is_host"])
	require.NoError(t, alice.WriteJSON(clientMessage{Type: "join", PlayerName: "Alice"}))

	bob := dial("")
	defer bob.Close()
	readMessage(t, bob)
	require.NoError(t, bob.WriteJSON(clientMessage{Type: "join", PlayerName: "Bob"}))

	// The host is told the room is full, then explicitly starts the game.
	readUntil(t, host, "room_full")
	require.NoError(t, host.WriteJSON(clientMessage{Type: "start"}))

	readUntil(t, alice, "countdown_started")
	round := readUntil(t, alice, "round_data")
	assert.Equal(t, float64(0), round["round"])
	assert.Equal(t, "listen", round["word"])

	require.NoError(t, alice.WriteJSON(clientMessage{Type: "answer", Round: 0, Answer: "silent"}))

	score := readUntil(t, host, "score_update")
	assert.Equal(t, "Alice", score["player_name"])
	assert.Equal(t, float64(5), score["score"])

	next := readUntil(t, host, "round_data")
	assert.Equal(t, float64(1), next["round"])
}

func TestWebSocketUnknownRoom(t *testing.T) {
	cfg := &Config{countdown: time.Second}
	mux := httprouter.New()
	registerAnagramGame(cfg, "/anagram", mux)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/anagram/nosuchid/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
