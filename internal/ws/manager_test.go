package ws

import (
	"encoding/json"
	"testing"

	"wordchain/internal/apperr"
	"wordchain/internal/domain"
	"wordchain/internal/pool"

	"github.com/google/uuid"
)

type managerFixture struct {
	pool    *pool.PlayerRoomPool
	manager *ConnectionManager
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	root := domain.NewRoot(uuid.New())
	p := pool.New(domain.NewLobby(1, root))
	return &managerFixture{pool: p, manager: NewConnectionManager(p)}
}

func (f *managerFixture) connect(t *testing.T, name string) (domain.Player, *Client) {
	t.Helper()
	player := domain.Player{ID: uuid.New(), Name: name}
	client := NewClient(player.ID, nil)
	if _, err := f.manager.Connect(player, client, 1); err != nil {
		t.Fatalf("Connect(%s): %v", name, err)
	}
	return player, client
}

func drainOne(t *testing.T, name string, client *Client) []byte {
	t.Helper()
	select {
	case frame := <-client.send:
		return frame
	default:
		t.Fatalf("%s received no frame", name)
		return nil
	}
}

func assertEmpty(t *testing.T, name string, client *Client) {
	t.Helper()
	select {
	case frame := <-client.send:
		t.Fatalf("%s received unexpected frame: %s", name, frame)
	default:
	}
}

func TestManagerConnectRejectsSecondClient(t *testing.T) {
	f := newManagerFixture(t)
	alice, _ := f.connect(t, "alice")

	_, err := f.manager.Connect(alice, NewClient(alice.ID, nil), 1)
	if apperr.KindOf(err) != apperr.KindAlreadyConnected {
		t.Fatalf("second Connect err = %v, want already-connected", err)
	}

	members, err := f.pool.GetRoomPlayers(1)
	if err != nil {
		t.Fatalf("GetRoomPlayers: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("lobby has %d members after refused connect, want 1", len(members))
	}
}

func TestManagerConnectRejectsPoolResident(t *testing.T) {
	f := newManagerFixture(t)

	// The player sits in the pool without a registered channel, as after
	// a half-finished disconnect.
	ghost := domain.Player{ID: uuid.New(), Name: "ghost"}
	if err := f.pool.AddPlayer(domain.NewSession(&ghost, 1), 1); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}

	_, err := f.manager.Connect(ghost, NewClient(ghost.ID, nil), 1)
	if apperr.KindOf(err) != apperr.KindAlreadyConnected {
		t.Fatalf("Connect err = %v, want already-connected", err)
	}
}

func TestManagerDisconnectReturnsSession(t *testing.T) {
	f := newManagerFixture(t)
	alice, _ := f.connect(t, "alice")

	session, err := f.manager.Disconnect(alice.ID)
	if err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if session.PlayerID != alice.ID || session.RoomID != 1 {
		t.Fatalf("session = %+v", session)
	}
	if _, err := f.pool.GetPlayer(alice.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("GetPlayer after disconnect err = %v, want not-found", err)
	}

	if _, err := f.manager.Disconnect(alice.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("second Disconnect err = %v, want not-found", err)
	}
}

func TestManagerBroadcastReachesEveryChannel(t *testing.T) {
	f := newManagerFixture(t)
	alice, aliceClient := f.connect(t, "alice")
	_, bobClient := f.connect(t, "bob")

	// A pool member without a channel must not break the fan-out.
	silent := domain.Player{ID: uuid.New(), Name: "silent"}
	if err := f.pool.AddPlayer(domain.NewSession(&silent, 1), 1); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}

	msg := NewChatMessage("hello", alice.Name, 1)
	if err := f.manager.BroadcastChat(msg); err != nil {
		t.Fatalf("BroadcastChat: %v", err)
	}

	for name, client := range map[string]*Client{"alice": aliceClient, "bob": bobClient} {
		frame := drainOne(t, name, client)
		msgType, payload, err := DecodeInbound(frame)
		if err != nil || msgType != TypeChat {
			t.Fatalf("%s got frame type %q, err %v", name, msgType, err)
		}
		var got ChatMessage
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Content != "hello" || got.PlayerName != "alice" {
			t.Fatalf("%s got %+v", name, got)
		}
	}
}

func TestManagerSendTargetsOnePlayer(t *testing.T) {
	f := newManagerFixture(t)
	_, aliceClient := f.connect(t, "alice")
	bob, bobClient := f.connect(t, "bob")

	if err := f.manager.SendAction(ActionKickPlayer, bob.ID); err != nil {
		t.Fatalf("SendAction: %v", err)
	}

	frame := drainOne(t, "bob", bobClient)
	msgType, payload, err := DecodeInbound(frame)
	if err != nil || msgType != TypeAction {
		t.Fatalf("bob got frame type %q, err %v", msgType, err)
	}
	var action Action
	if err := json.Unmarshal(payload, &action); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if action.Action != ActionKickPlayer {
		t.Fatalf("action = %q", action.Action)
	}
	assertEmpty(t, "alice", aliceClient)
}
