package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridelink/pkg/logger"
)

// Room naming: every connected user sits in their personal room, every
// driver additionally sits in the drivers room, and clients join ride
// rooms explicitly to follow a specific ride.
const driversRoom = "drivers"

func userRoom(userID primitive.ObjectID) string { return "user_" + userID.Hex() }
func rideRoom(rideID primitive.ObjectID) string { return "ride_" + rideID.Hex() }

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex
	logger     *logger.Logger
}

type Message struct {
	Type      string                 `json:"type"`
	RoomID    string                 `json:"room_id,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	h.logger.WithActorID(client.UserID).Debug("Websocket client connected")

	h.joinRoom(client, userRoom(client.UserID))
	if client.IsDriver {
		h.joinRoom(client, driversRoom)
	}

	h.sendToClient(client, Message{
		Type:      "connected",
		Timestamp: time.Now().Unix(),
		Data:      map[string]interface{}{"user_id": client.UserID.Hex()},
	})
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; ok {
		h.evictClient(client)
		h.logger.WithActorID(client.UserID).Debug("Websocket client disconnected")
	}
}

// evictClient removes a client from every room before closing its send
// channel, so no later room broadcast can write to a closed channel.
// Caller holds the write lock. A second call for the same client is a
// no-op, which keeps the close from running twice.
func (h *Hub) evictClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	for roomID, room := range h.rooms {
		if _, exists := room[client]; exists {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}

	close(client.send)
}

// SendToRoom delivers a message to every client in the room. Clients
// that cannot keep up are dropped rather than blocking delivery.
func (h *Hub) SendToRoom(roomID string, message Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	room, exists := h.rooms[roomID]
	if !exists {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	for client := range room {
		select {
		case client.send <- data:
		default:
			h.evictClient(client)
		}
	}
}

// SendToUser delivers to the user's personal room.
func (h *Hub) SendToUser(userID primitive.ObjectID, message Message) {
	h.SendToRoom(userRoom(userID), message)
}

// SendToDrivers delivers to every connected driver. Used when a fresh
// ride request enters the open pool.
func (h *Hub) SendToDrivers(message Message) {
	h.SendToRoom(driversRoom, message)
}

// SendToRide delivers to everyone following the ride.
func (h *Hub) SendToRide(rideID primitive.ObjectID, message Message) {
	h.SendToRoom(rideRoom(rideID), message)
}

func (h *Hub) sendToClient(client *Client, message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
		h.evictClient(client)
	}
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.rooms[roomID] = true
}

func (h *Hub) leaveRoom(client *Client, roomID string) {
	if room, exists := h.rooms[roomID]; exists {
		delete(room, client)
		delete(client.rooms, roomID)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// JoinRide subscribes a client to a ride room.
func (h *Hub) JoinRide(client *Client, rideID primitive.ObjectID) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.joinRoom(client, rideRoom(rideID))
}

// LeaveRide unsubscribes a client from a ride room.
func (h *Hub) LeaveRide(client *Client, rideID primitive.ObjectID) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.leaveRoom(client, rideRoom(rideID))
}
