package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"wordchain/internal/db"
	"wordchain/internal/repository"
	"wordchain/internal/service"
	"wordchain/internal/ws"
)

// Smoke-tests a full two-player game against a locally running server:
// register, log in via minted tokens, connect, create and join a room,
// start the game and push words until it ends.
func main() {
	dsn := os.Getenv("DATABASE_URI")
	if dsn == "" {
		log.Fatal("DATABASE_URI not set")
	}
	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		log.Fatal("AUTH_JWT_SECRET not set")
	}
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	cookieName := os.Getenv("AUTH_COOKIE_NAME")
	if cookieName == "" {
		cookieName = "player_id"
	}

	pool := db.Connect(context.Background(), dsn)
	defer pool.Close()

	players := repository.NewPlayerRepository(pool)
	ctx := context.Background()
	suffix := rand.Intn(10000)

	a, err := players.Create(ctx, fmt.Sprintf("smA%d", suffix))
	if err != nil {
		log.Fatalf("create player A: %v", err)
	}
	b, err := players.Create(ctx, fmt.Sprintf("smB%d", suffix))
	if err != nil {
		log.Fatalf("create player B: %v", err)
	}

	service.InitAuthTokens(secret, 20*time.Minute)
	tokenA, err := service.IssueToken(a.ID)
	if err != nil {
		log.Fatalf("token A: %v", err)
	}
	tokenB, err := service.IssueToken(b.ID)
	if err != nil {
		log.Fatalf("token B: %v", err)
	}

	base := fmt.Sprintf("http://127.0.0.1:%s", port)
	cookieA := cookieName + "=" + tokenA
	cookieB := cookieName + "=" + tokenB

	connA := dial(port, cookieA)
	defer connA.Close()
	connB := dial(port, cookieB)
	defer connB.Close()

	var room struct {
		ID int `json:"id"`
	}
	post(base+"/rooms", cookieA, map[string]any{"name": fmt.Sprintf("smoke%d", suffix), "capacity": 2}, &room)
	log.Printf("created room %d", room.ID)

	post(fmt.Sprintf("%s/rooms/%d/join", base, room.ID), cookieA, nil, nil)
	post(fmt.Sprintf("%s/rooms/%d/join", base, room.ID), cookieB, nil, nil)
	post(fmt.Sprintf("%s/rooms/%d/ready", base, room.ID), cookieB, nil, nil)
	post(fmt.Sprintf("%s/rooms/%d/start", base, room.ID), cookieA, nil, nil)
	log.Println("game started")

	words := []string{"apple", "elephant", "tiger", "rabbit", "turtle", "eagle"}
	done := make(chan string, 2)
	go play(connA, a.Name, words, done)
	go play(connB, b.Name, words, done)

	for i := 0; i < 2; i++ {
		select {
		case name := <-done:
			log.Printf("%s finished", name)
		case <-time.After(2 * time.Minute):
			log.Fatal("smoke timed out")
		}
	}
	log.Println("smoke passed")
}

func dial(port, cookie string) *websocket.Conn {
	header := http.Header{"Cookie": []string{cookie}}
	conn, _, err := websocket.DefaultDialer.Dial(
		fmt.Sprintf("ws://127.0.0.1:%s/connect", port), header)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	return conn
}

func post(url, cookie string, body any, out any) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", cookie)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Fatalf("POST %s: status %d", url, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("decode response of %s: %v", url, err)
		}
	}
}

// play reacts to game states: it learns its player index from the started
// snapshot and answers every own turn with the next word from the list.
func play(conn *websocket.Conn, name string, words []string, done chan<- string) {
	myIdx := -1
	gameID := 0
	next := 0

	for {
		conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("%s read: %v", name, err)
		}
		kind, payload, err := ws.DecodeInbound(raw)
		if err != nil || kind != ws.TypeGameState {
			continue
		}

		var state struct {
			State   string `json:"state"`
			ID      int    `json:"id"`
			Players []struct {
				Name string `json:"name"`
			} `json:"players"`
			CurrentTurn struct {
				PlayerIdx int `json:"playerIdx"`
			} `json:"currentTurn"`
		}
		if err := json.Unmarshal(payload, &state); err != nil {
			continue
		}

		switch state.State {
		case "STARTED":
			gameID = state.ID
			for i, p := range state.Players {
				if p.Name == name {
					myIdx = i
				}
			}
		case "STARTED_TURN":
			if state.CurrentTurn.PlayerIdx != myIdx {
				continue
			}
			word := words[next%len(words)]
			next++
			msg, err := ws.Encode(ws.GameInput{
				Type:      ws.TypeGameInput,
				InputType: ws.InputTypeWord,
				GameID:    gameID,
				Word:      word,
			})
			if err != nil {
				log.Fatalf("%s encode input: %v", name, err)
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Fatalf("%s write: %v", name, err)
			}
			log.Printf("%s played %q", name, word)
		case "ENDED":
			done <- name
			return
		}
	}
}
