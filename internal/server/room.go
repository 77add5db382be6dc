package server

import (
	"log"
)

// Room is a transient broadcast group. It has no persisted identity; it
// exists only while at least one connection is joined. All mutation happens
// on the ChatServer run loop, so no locking is needed.
type Room struct {
	name    string
	clients map[*Client]struct{}
	log     *log.Logger
}

func newRoom(name string, logger *log.Logger) *Room {
	return &Room{
		name:    name,
		clients: make(map[*Client]struct{}),
		log:     logger,
	}
}

func (r *Room) addClient(c *Client) {
	r.clients[c] = struct{}{}
}

func (r *Room) removeClient(c *Client) {
	delete(r.clients, c)
}

func (r *Room) memberCount() int {
	return len(r.clients)
}

func (r *Room) empty() bool {
	return len(r.clients) == 0
}

// broadcast queues ev on every client in the room except skip. Pass a nil
// skip to include the sender, which is how message-received differs from
// the presence and typing events.
func (r *Room) broadcast(ev *ServerEvent, skip *Client) {
	for client := range r.clients {
		if client == skip {
			continue
		}

		if !client.queueEvent(ev) {
			r.log.Printf("dropping %q event for slow client %s in room %q", ev.Event, client.id, r.name)
		}
	}
}
