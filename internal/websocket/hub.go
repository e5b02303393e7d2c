package websocket

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Hub tracks connected clients per user and fans notifications out to them.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	publish    chan *publication
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopOnce   sync.Once
	stopped    bool
	mu         sync.RWMutex
}

type publication struct {
	userIDs []uuid.UUID
	data    []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan *publication, 256),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done) // Signal that Run() has exited

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for _, set := range h.clients {
				for client := range set {
					client.Close()
				}
			}
			h.clients = make(map[uuid.UUID]map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if !h.stopped {
				set, ok := h.clients[client.userID]
				if !ok {
					set = make(map[*Client]bool)
					h.clients[client.userID] = set
				}
				set[client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.clients[client.userID]; ok && set[client] {
				delete(set, client)
				if len(set) == 0 {
					delete(h.clients, client.userID)
				}
				client.Close()
			}
			h.mu.Unlock()

		case p := <-h.publish:
			h.mu.RLock()
			for _, id := range p.userIDs {
				for client := range h.clients[id] {
					client.trySend(p.data)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop gracefully shuts down the hub and closes every client.
// It blocks until the hub has fully shut down.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done // Wait for Run() to finish
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister safely unregisters a client, handling the case where the hub may be stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish sends one message to every connection of the given users. Users
// without a connection are skipped. It never blocks the caller on slow
// clients.
func (h *Hub) Publish(userIDs []uuid.UUID, msgType MessageType, payload any) {
	if len(userIDs) == 0 {
		return
	}
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", string(msgType)).Msg("build websocket message")
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", string(msgType)).Msg("marshal websocket message")
		return
	}

	select {
	case h.publish <- &publication{userIDs: userIDs, data: data}:
	case <-h.done:
	default:
		log.Warn().Str("type", string(msgType)).Int("users", len(userIDs)).Msg("notification dropped, hub busy")
	}
}

// ConnectedUsers returns the number of users with at least one connection.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
