package websocket

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridelink/pkg/logger"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	log, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	return NewHub(log)
}

// testClient connects a driver with a one-slot send buffer directly,
// bypassing the register channel so no Run goroutine is needed.
func testClient(h *Hub) *Client {
	c := &Client{
		hub:      h,
		send:     make(chan []byte, 1),
		UserID:   primitive.NewObjectID(),
		IsDriver: true,
		rooms:    make(map[string]bool),
	}
	h.registerClient(c)
	return c
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func TestSlowClientEvictedFromAllRooms(t *testing.T) {
	h := testHub(t)
	c := testClient(h)
	rideID := primitive.NewObjectID()
	h.JoinRide(c, rideID)

	// Fill the buffer so the next broadcast takes the slow path.
	drain(c)
	h.SendToDrivers(Message{Type: "ride_pending", Timestamp: time.Now().Unix()})
	h.SendToDrivers(Message{Type: "ride_pending", Timestamp: time.Now().Unix()})

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if _, ok := h.clients[c]; ok {
		t.Error("slow client still registered")
	}
	for roomID, room := range h.rooms {
		if _, ok := room[c]; ok {
			t.Errorf("slow client still in room %s", roomID)
		}
	}
}

// A broadcast to a room the evicted client also belonged to must not
// write to its closed send channel.
func TestBroadcastAfterEvictionDoesNotPanic(t *testing.T) {
	h := testHub(t)
	c := testClient(h)
	rideID := primitive.NewObjectID()
	h.JoinRide(c, rideID)

	witness := testClient(h)
	h.JoinRide(witness, rideID)

	// The witness keeps draining like a healthy reader; c stops.
	drain(c)
	drain(witness)
	h.SendToDrivers(Message{Type: "ride_pending", Timestamp: time.Now().Unix()})
	drain(witness)
	h.SendToDrivers(Message{Type: "ride_pending", Timestamp: time.Now().Unix()})
	drain(witness)

	h.SendToRide(rideID, Message{Type: "ride_accepted", Timestamp: time.Now().Unix()})

	select {
	case <-witness.send:
	default:
		t.Error("surviving client missed the ride room broadcast")
	}
}

func TestUnregisterTwiceIsNoOp(t *testing.T) {
	h := testHub(t)
	c := testClient(h)

	h.unregisterClient(c)
	h.unregisterClient(c)

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if len(h.rooms) != 0 {
		t.Errorf("rooms not cleaned up: %d remain", len(h.rooms))
	}
}
