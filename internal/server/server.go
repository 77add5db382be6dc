package server

import (
	"context"
	"encoding/json"
	"log"

	"github.com/jordankell/go-messenger/internal/stats"
)

type inboundEvent struct {
	client   *Client
	envelope Envelope
}

type stopReq struct {
	done chan struct{}
}

// ChatServer is the relay. It owns the room registry and every connection's
// membership state; all mutation and fan-out happens on the Run loop, so
// events from a single connection are processed in order and the registry
// needs no lock.
type ChatServer struct {
	log            *log.Logger
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	rooms          map[string]*Room
	eventChan      chan *inboundEvent
	registerChan   chan *Client
	deRegisterChan chan *Client
	stop           chan stopReq
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, su stats.StatsProvider) (*ChatServer, error) {
	su.RegisterMetric(stats.NumActiveConnections)
	su.RegisterMetric(stats.NumActiveRooms)
	su.RegisterMetric(stats.NumMessagesRelayed)
	su.RegisterMetric(stats.NumTypingEvents)

	return &ChatServer{
		log:            logger,
		stats:          su,
		clients:        make(map[*Client]struct{}),
		rooms:          make(map[string]*Room),
		eventChan:      make(chan *inboundEvent, 256),
		registerChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		stop:           make(chan stopReq),
		done:           make(chan struct{}),
	}, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case client := <-cs.registerChan:
			cs.clients[client] = struct{}{}
			cs.stats.Incr(stats.NumActiveConnections)
		case client := <-cs.deRegisterChan:
			if _, ok := cs.clients[client]; !ok {
				continue
			}
			cs.handleDisconnect(client)
			delete(cs.clients, client)
			cs.stats.Decr(stats.NumActiveConnections)
		case ev := <-cs.eventChan:
			cs.dispatch(ev)
		case req := <-cs.stop:
			cs.log.Println("stopping relay")
			for client := range cs.clients {
				client.stopClient()
			}
			close(cs.done)
			close(req.done)
			return
		}
	}
}

func (cs *ChatServer) RegisterClient(c *Client) {
	select {
	case cs.registerChan <- c:
	case <-cs.done:
	}
}

func (cs *ChatServer) DeregisterClient(c *Client) {
	select {
	case cs.deRegisterChan <- c:
	case <-cs.done:
	}
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	req := stopReq{done: make(chan struct{})}

	select {
	case cs.stop <- req:
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (cs *ChatServer) dispatch(ev *inboundEvent) {
	c := ev.client

	switch ev.envelope.Event {
	case EventJoinRoom:
		var data JoinRoom
		if err := json.Unmarshal(ev.envelope.Data, &data); err != nil {
			cs.sendError(c, "invalid join-room payload")
			return
		}
		cs.handleJoin(c, data)
	case EventLeaveRoom:
		var data LeaveRoom
		if err := json.Unmarshal(ev.envelope.Data, &data); err != nil {
			cs.sendError(c, "invalid leave-room payload")
			return
		}
		cs.handleLeave(c, data.RoomName)
	case EventSendMessage:
		var data SendMessage
		if err := json.Unmarshal(ev.envelope.Data, &data); err != nil {
			cs.sendError(c, "Failed to send message")
			return
		}
		cs.handleSendMessage(c, data)
	case EventTypingIndicator:
		var data TypingIndicator
		if err := json.Unmarshal(ev.envelope.Data, &data); err != nil {
			return
		}
		cs.handleTyping(c, data)
	case EventStopTyping:
		var data StopTyping
		if err := json.Unmarshal(ev.envelope.Data, &data); err != nil {
			return
		}
		cs.handleStopTyping(c, data)
	default:
		cs.log.Printf("unknown event %q from client %s", ev.envelope.Event, c.id)
	}
}

// handleJoin subscribes c to the named room. A connection holds one room at
// a time: joining while joined elsewhere leaves the old room first, with
// the usual user-left broadcast.
func (cs *ChatServer) handleJoin(c *Client, data JoinRoom) {
	if c.room != nil && c.room.name != data.RoomName {
		cs.handleLeave(c, c.room.name)
	}

	room, ok := cs.rooms[data.RoomName]
	if !ok {
		room = newRoom(data.RoomName, cs.log)
		cs.rooms[data.RoomName] = room
		cs.stats.Incr(stats.NumActiveRooms)
	}

	room.addClient(c)
	c.room = room
	c.userId = data.UserId

	room.broadcast(&ServerEvent{
		Event: EventUserJoined,
		Data: UserJoined{
			UserId:    data.UserId,
			RoomName:  room.name,
			Timestamp: Now(),
		},
	}, c)

	c.queueEvent(&ServerEvent{
		Event: EventRoomInfo,
		Data: RoomInfo{
			MemberCount: room.memberCount(),
			RoomName:    room.name,
		},
	})
}

func (cs *ChatServer) handleLeave(c *Client, roomName string) {
	room, ok := cs.rooms[roomName]
	if !ok {
		return
	}

	if _, member := room.clients[c]; !member {
		return
	}

	room.removeClient(c)
	if c.room == room {
		c.room = nil
	}

	room.broadcast(&ServerEvent{
		Event: EventUserLeft,
		Data: UserLeft{
			UserId:    c.userId,
			RoomName:  roomName,
			Timestamp: Now(),
		},
	}, c)

	cs.collectRoom(room)
}

// handleDisconnect mirrors leave-room but also clears the user's typing
// indicator, since a dropped connection never sends stop-typing itself.
func (cs *ChatServer) handleDisconnect(c *Client) {
	room := c.room
	if room == nil {
		return
	}

	room.removeClient(c)
	c.room = nil

	room.broadcast(&ServerEvent{
		Event: EventUserLeft,
		Data: UserLeft{
			UserId:    c.userId,
			RoomName:  room.name,
			Timestamp: Now(),
		},
	}, c)

	room.broadcast(&ServerEvent{
		Event: EventUserStoppedTyping,
		Data: UserStoppedTyping{
			UserId:    c.userId,
			RoomName:  room.name,
			Timestamp: Now(),
		},
	}, c)

	cs.collectRoom(room)
}

// handleSendMessage fans the message out to every member of the room,
// sender included, so the sender's UI updates through the same path as
// everyone else's. The relay does not persist; clients store the message
// through the REST API independently.
func (cs *ChatServer) handleSendMessage(c *Client, data SendMessage) {
	room, ok := cs.rooms[data.RoomName]
	if !ok {
		return
	}

	cs.stats.Incr(stats.NumMessagesRelayed)

	room.broadcast(&ServerEvent{
		Event: EventMessageReceived,
		Data: MessageReceived{
			RoomName:       data.RoomName,
			UserId:         data.UserId,
			Content:        data.Content,
			Timestamp:      Now(),
			ConversationId: data.ConversationId,
		},
	}, nil)
}

func (cs *ChatServer) handleTyping(c *Client, data TypingIndicator) {
	room, ok := cs.rooms[data.RoomName]
	if !ok {
		return
	}

	cs.stats.Incr(stats.NumTypingEvents)

	room.broadcast(&ServerEvent{
		Event: EventUserTyping,
		Data: UserTyping{
			UserId:    data.UserId,
			UserName:  data.UserName,
			RoomName:  data.RoomName,
			Timestamp: Now(),
		},
	}, c)
}

func (cs *ChatServer) handleStopTyping(c *Client, data StopTyping) {
	room, ok := cs.rooms[data.RoomName]
	if !ok {
		return
	}

	room.broadcast(&ServerEvent{
		Event: EventUserStoppedTyping,
		Data: UserStoppedTyping{
			UserId:    data.UserId,
			RoomName:  data.RoomName,
			Timestamp: Now(),
		},
	}, c)
}

func (cs *ChatServer) sendError(c *Client, msg string) {
	c.queueEvent(&ServerEvent{
		Event: EventMessageError,
		Data: MessageError{
			Error:     msg,
			Timestamp: Now(),
		},
	})
}

// collectRoom drops a room from the registry once its last member leaves.
// Rooms are transient, so there is nothing else to clean up.
func (cs *ChatServer) collectRoom(room *Room) {
	if !room.empty() {
		return
	}

	delete(cs.rooms, room.name)
	cs.stats.Decr(stats.NumActiveRooms)
}
