package ws

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"wordchain/internal/domain"
	"wordchain/internal/pool"

	"github.com/google/uuid"
)

func TestEncodeWrapsEnvelope(t *testing.T) {
	data, err := Encode(NewChatMessage("hello", "alice", 1))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	payload, ok := decoded["payload"]
	if !ok {
		t.Fatalf("envelope misses payload key: %s", data)
	}

	var msg ChatMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if msg.Type != TypeChat || msg.Content != "hello" || msg.PlayerName != "alice" || msg.RoomID != 1 {
		t.Fatalf("payload = %+v", msg)
	}
	if msg.ID != nil || msg.CreatedOn != nil {
		t.Fatalf("unsaved chat message should carry no id or timestamp: %+v", msg)
	}
}

func TestLobbyStateDeltaNullVersusAbsent(t *testing.T) {
	delta := NewLobbyState()
	delta.Players = map[string]*LobbyPlayerOut{"bob": nil}

	data, err := json.Marshal(delta)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"players":{"bob":null}`) {
		t.Errorf("removal must be an explicit null: %s", s)
	}
	if strings.Contains(s, `"rooms"`) {
		t.Errorf("untouched rooms key must be absent: %s", s)
	}
	if strings.Contains(s, `"stats"`) {
		t.Errorf("untouched stats key must be absent: %s", s)
	}
}

func TestRoomStateAlwaysCarriesScalars(t *testing.T) {
	owner := domain.Player{ID: uuid.New(), Name: "alice"}
	room := domain.NewRoom(3, "pit", 4, domain.DefaultDeathmatchRules(), &owner)

	state := NewRoomStateDelta(room, map[string]*RoomPlayerOut{"bob": nil})
	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"id":3`, `"name":"pit"`, `"capacity":4`, `"ownerName":"alice"`, `"players":{"bob":null}`, `"status":"Open"`} {
		if !strings.Contains(s, want) {
			t.Errorf("room state misses %s: %s", want, s)
		}
	}
}

func TestTurnOutShapes(t *testing.T) {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ended := started.Add(5 * time.Second)

	timedOut := TurnOut{
		Turn: domain.Turn{
			StartedOn: started,
			EndedOn:   &ended,
			Info:      "Turn time exceeded",
		},
		PlayerIdx: 2,
	}
	data, err := json.Marshal(timedOut)
	if err != nil {
		t.Fatalf("marshal timed out turn: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"word":null`) {
		t.Errorf("timed out turn must carry a null word: %s", s)
	}
	if !strings.Contains(s, `"playerIdx":2`) {
		t.Errorf("turn must carry the player index: %s", s)
	}

	accepted := TurnOut{
		Turn: domain.Turn{
			Word:      &domain.Word{Content: "apple", IsCorrect: true},
			StartedOn: started,
			EndedOn:   &ended,
			Info:      "Word is correct",
		},
	}
	data, err = json.Marshal(accepted)
	if err != nil {
		t.Fatalf("marshal accepted turn: %v", err)
	}
	s = string(data)
	if !strings.Contains(s, `"content":"apple"`) || !strings.Contains(s, `"isCorrect":true`) {
		t.Errorf("accepted turn word malformed: %s", s)
	}
}

func TestDecodeInbound(t *testing.T) {
	raw := []byte(`{"payload":{"type":"game_input","inputType":"word_input","gameId":42,"word":"apple"}}`)

	msgType, payload, err := DecodeInbound(raw)
	if err != nil {
		t.Fatalf("DecodeInbound: %v", err)
	}
	if msgType != TypeGameInput {
		t.Fatalf("type = %q, want %q", msgType, TypeGameInput)
	}

	var input GameInput
	if err := json.Unmarshal(payload, &input); err != nil {
		t.Fatalf("unmarshal input: %v", err)
	}
	if input.InputType != InputTypeWord || input.GameID != 42 || input.Word != "apple" {
		t.Fatalf("input = %+v", input)
	}
}

func TestDecodeInboundMalformed(t *testing.T) {
	for _, raw := range []string{"not json", `{"payload":"nope"}`, `{}`} {
		if _, _, err := DecodeInbound([]byte(raw)); err == nil {
			t.Errorf("DecodeInbound(%q) should fail", raw)
		}
	}
}

func TestBuildLobbyState(t *testing.T) {
	root := domain.NewRoot(uuid.New())
	p := pool.New(domain.NewLobby(1, root))

	alice := domain.NewSession(&domain.Player{ID: uuid.New(), Name: "alice"}, 1)
	if err := p.AddPlayer(alice, 1); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	room := domain.NewRoom(2, "pit", 4, domain.DefaultDeathmatchRules(), &domain.Player{ID: alice.PlayerID, Name: alice.Name})
	if err := p.CreateRoom(room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	state := BuildLobbyState(p)
	if state.Type != TypeLobbyState {
		t.Fatalf("type = %q", state.Type)
	}
	if len(state.Rooms) != 1 || state.Rooms[2] == nil || state.Rooms[2].Name != "pit" {
		t.Fatalf("rooms = %+v", state.Rooms)
	}
	if state.Rooms[2].PlayersNo != 0 {
		t.Fatalf("room players_no = %d, want 0", state.Rooms[2].PlayersNo)
	}
	if len(state.Players) != 1 || state.Players["alice"] == nil {
		t.Fatalf("players = %+v", state.Players)
	}
	if state.Stats == nil || state.Stats.ActivePlayers != 1 || state.Stats.ActiveRooms != 1 {
		t.Fatalf("stats = %+v", state.Stats)
	}
}
