// internal/websocket/hub.go
package websocket

import (
	"encoding/json"
	"log"

	"basin-gateway/internal/data"
)

// Hub maintains the set of connected dashboard clients and fans
// samples and alerts out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.Printf("WebSocket client registered: %s", client.Conn.RemoteAddr())

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Printf("WebSocket client unregistered: %s", client.Conn.RemoteAddr())
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Client stalled, drop it.
					close(client.Send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// RegisterClient adds a new client to the hub.
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// BroadcastSample pushes a freshly ingested sample to all clients.
func (h *Hub) BroadcastSample(sample data.Sample) {
	h.send("metric", sample)
}

// BroadcastAlerts pushes newly raised alerts to all clients.
func (h *Hub) BroadcastAlerts(alerts []data.Alert) {
	if len(alerts) == 0 {
		return
	}
	h.send("alerts", alerts)
}

func (h *Hub) send(messageType string, payload interface{}) {
	messageBytes, err := json.Marshal(map[string]interface{}{
		"type":    messageType,
		"payload": payload,
	})
	if err != nil {
		log.Printf("Error marshalling %s broadcast: %v", messageType, err)
		return
	}
	h.broadcast <- messageBytes
}
