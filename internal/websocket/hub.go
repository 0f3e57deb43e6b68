package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// publication is one outbound message. An empty playerUUID means the global
// feed; otherwise the message also reaches clients watching that player.
type publication struct {
	playerUUID string
	data       []byte
}

// Hub maintains the set of active clients and delivers backup lifecycle
// messages to them. Unscoped clients receive every message; clients scoped
// to a player receive only that player's messages.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound messages awaiting delivery.
	publish chan publication

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// A map of player UUIDs to the set of clients watching that player.
	subscriptions map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		publish:       make(chan publication, 64),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop. All client and subscription
// state is owned by this goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Int("total_clients", len(h.clients)).Msg("Client connected")
			if client.PlayerUUID != "" {
				h.addSubscription(client, client.PlayerUUID)
			}
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.removeSubscription(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case p := <-h.publish:
			for client := range h.clients {
				if client.PlayerUUID == "" {
					h.deliver(client, p.data)
				}
			}
			if p.playerUUID != "" {
				for client := range h.subscriptions[p.playerUUID] {
					h.deliver(client, p.data)
				}
			}
		}
	}
}

// deliver hands a message to one client, dropping the client if its send
// buffer is full.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		close(client.Send)
		delete(h.clients, client)
		h.removeSubscription(client)
	}
}

// BroadcastMessage encodes and publishes a message on the global feed. The
// enqueue is non-blocking: the feed is advisory, so a stalled hub drops
// rather than holding up a backup operation.
func (h *Hub) BroadcastMessage(action string, payload interface{}) {
	h.enqueue("", action, payload)
}

// BroadcastToPlayer publishes a message about one player. It reaches the
// global feed and every client scoped to that player.
func (h *Hub) BroadcastToPlayer(playerUUID, action string, payload interface{}) {
	h.enqueue(playerUUID, action, payload)
}

func (h *Hub) enqueue(playerUUID, action string, payload interface{}) {
	data, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode broadcast message")
		return
	}
	select {
	case h.publish <- publication{playerUUID: playerUUID, data: data}:
	default:
		log.Debug().Str("action", action).Msg("Publish channel full, dropping message")
	}
}

func (h *Hub) addSubscription(client *Client, playerUUID string) {
	if h.subscriptions[playerUUID] == nil {
		h.subscriptions[playerUUID] = make(map[*Client]bool)
	}
	h.subscriptions[playerUUID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for playerUUID, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, playerUUID)
			}
		}
	}
}
