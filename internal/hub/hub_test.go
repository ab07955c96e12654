package hub

import (
	"errors"
	"sync"
	"testing"
)

type fakeConn struct {
	mu     sync.Mutex
	events []Event
	fail   bool
	closed bool
}

func (c *fakeConn) Send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestEmitReachesAllRoomMembers(t *testing.T) {
	h := New()
	moderator := &fakeConn{}
	player := &fakeConn{}
	other := &fakeConn{}

	h.Join(moderator, 1, RoleModerator, 0)
	h.Join(player, 1, RolePlayer, 42)
	h.Join(other, 2, RolePlayer, 7)

	h.Emit(1, "newQuestion", map[string]int{"questionIndex": 1})

	for _, conn := range []*fakeConn{moderator, player} {
		events := conn.received()
		if len(events) != 1 || events[0].Type != "newQuestion" {
			t.Fatalf("expected 1 newQuestion event, got %+v", events)
		}
	}
	if len(other.received()) != 0 {
		t.Fatalf("expected session 2 member to receive nothing")
	}
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := New()
	conn := &fakeConn{}
	h.Join(conn, 1, RolePlayer, 0)
	h.Leave(conn)

	h.Emit(1, "gameOver", nil)
	if len(conn.received()) != 0 {
		t.Fatalf("expected no delivery after leave")
	}
	if h.Members(1) != 0 {
		t.Fatalf("expected empty room, got %d", h.Members(1))
	}
}

func TestRejoinMovesConnectionBetweenRooms(t *testing.T) {
	h := New()
	conn := &fakeConn{}
	h.Join(conn, 1, RolePlayer, 0)
	h.Join(conn, 2, RolePlayer, 0)

	h.Emit(1, "newQuestion", nil)
	if len(conn.received()) != 0 {
		t.Fatalf("expected nothing from old room")
	}
	h.Emit(2, "newQuestion", nil)
	if len(conn.received()) != 1 {
		t.Fatalf("expected delivery from new room")
	}
	if h.Members(1) != 0 || h.Members(2) != 1 {
		t.Fatalf("expected membership to move, got %d/%d", h.Members(1), h.Members(2))
	}
}

func TestFailingMemberIsDroppedAndClosed(t *testing.T) {
	h := New()
	healthy := &fakeConn{}
	broken := &fakeConn{fail: true}
	h.Join(healthy, 1, RolePlayer, 0)
	h.Join(broken, 1, RolePlayer, 0)

	h.Emit(1, "camembertUpdated", nil)

	if h.Members(1) != 1 {
		t.Fatalf("expected broken member dropped, got %d members", h.Members(1))
	}
	broken.mu.Lock()
	closed := broken.closed
	broken.mu.Unlock()
	if !closed {
		t.Fatalf("expected broken member closed")
	}
	if len(healthy.received()) != 1 {
		t.Fatalf("expected healthy member to still receive")
	}
}
