// Command chat is a terminal client for the messenger server. It logs in
// over the REST API, joins a conversation room over the websocket, and
// reconciles paginated history with live relay events into one transcript.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/jordankell/go-messenger/internal/api"
	"github.com/jordankell/go-messenger/internal/reconcile"
	"github.com/jordankell/go-messenger/internal/server"
	"github.com/jordankell/go-messenger/internal/types"
)

func main() {
	if err := run(); err != nil {
		log.Printf("chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "localhost:8000", "server address")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	conversation := flag.String("conversation", "", "conversation id to open")
	flag.Parse()

	if *email == "" || *password == "" || *conversation == "" {
		return fmt.Errorf("email, password and conversation are required")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("cookie jar: %w", err)
	}
	httpClient := &http.Client{Jar: jar}
	baseUrl := "http://" + *addr

	me, err := login(httpClient, baseUrl, *email, *password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	history, err := fetchHistory(httpClient, baseUrl, *conversation)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	conn, err := dialWs(jar, *addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	view := reconcile.NewView()
	roomName := server.RoomName(&types.ActiveChat{Conversation: &types.Conversation{Id: *conversation}}, me.Id)
	view.SetRoom(roomName)

	if err := sendEvent(conn, server.EventJoinRoom, server.JoinRoom{
		RoomName: roomName,
		UserId:   me.Id,
	}); err != nil {
		return fmt.Errorf("join room: %w", err)
	}

	for _, msg := range view.Messages(history) {
		printMessage(me.Id, msg)
	}
	fmt.Println("Type messages and press Enter to send. Ctrl+D to exit.")

	done := make(chan struct{})
	go func() {
		defer close(done)
		readLoop(conn, me.Id, view, history)
	}()

	writeLoop(conn, httpClient, baseUrl, me.Id, *conversation, roomName)

	sendEvent(conn, server.EventLeaveRoom, server.LeaveRoom{RoomName: roomName})
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	<-done
	return nil
}

func login(client *http.Client, baseUrl, email, password string) (types.User, error) {
	body, err := json.Marshal(api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return types.User{}, err
	}

	resp, err := client.Post(baseUrl+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return types.User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.User{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var user types.User
	err = json.NewDecoder(resp.Body).Decode(&user)
	return user, err
}

// fetchHistory pages backwards through the conversation until the server
// stops returning a cursor.
func fetchHistory(client *http.Client, baseUrl, conversationId string) ([]types.Message, error) {
	var history []types.Message
	cursor := ""
	for {
		q := url.Values{"conversation_id": {conversationId}}
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		resp, err := client.Get(baseUrl + "/api/messages?" + q.Encode())
		if err != nil {
			return nil, err
		}

		var page api.MessagesPage
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}

		history = append(history, page.Messages...)
		if page.NextCursor == "" {
			return history, nil
		}
		cursor = page.NextCursor
	}
}

func dialWs(jar http.CookieJar, addr string) (*websocket.Conn, error) {
	wsUrl := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	dialer := websocket.Dialer{Jar: jar}
	conn, _, err := dialer.Dial(wsUrl.String(), nil)
	return conn, err
}

func sendEvent(conn *websocket.Conn, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(server.Envelope{Event: event, Data: payload})
}

func readLoop(conn *websocket.Conn, myId string, view *reconcile.View, history []types.Message) {
	for {
		var env server.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			log.Printf("read: %v", err)
			return
		}

		switch env.Event {
		case server.EventMessageReceived:
			var evt server.MessageReceived
			if err := json.Unmarshal(env.Data, &evt); err != nil {
				log.Printf("unmarshal %s: %v", env.Event, err)
				continue
			}
			// relay frames carry no message id, so key on sender+timestamp
			view.AddLive(types.Message{
				Id:             evt.UserId + "/" + evt.Timestamp.Format("20060102T150405.000"),
				ConversationId: evt.ConversationId,
				SenderId:       evt.UserId,
				Content:        evt.Content,
				CreatedAt:      evt.Timestamp,
			})
			transcript := view.Messages(history)
			printMessage(myId, transcript[len(transcript)-1])
		case server.EventUserTyping:
			var evt server.UserTyping
			if err := json.Unmarshal(env.Data, &evt); err != nil {
				log.Printf("unmarshal %s: %v", env.Event, err)
				continue
			}
			view.Typing.Add(evt.UserId)
			fmt.Printf("* %s is typing\n", evt.UserName)
		case server.EventUserStoppedTyping:
			var evt server.UserStoppedTyping
			if err := json.Unmarshal(env.Data, &evt); err != nil {
				log.Printf("unmarshal %s: %v", env.Event, err)
				continue
			}
			view.Typing.Remove(evt.UserId)
		case server.EventUserJoined:
			var evt server.UserJoined
			if err := json.Unmarshal(env.Data, &evt); err != nil {
				log.Printf("unmarshal %s: %v", env.Event, err)
				continue
			}
			fmt.Printf("* %s joined %s\n", evt.UserId, evt.RoomName)
		case server.EventUserLeft:
			var evt server.UserLeft
			if err := json.Unmarshal(env.Data, &evt); err != nil {
				log.Printf("unmarshal %s: %v", env.Event, err)
				continue
			}
			view.Typing.Remove(evt.UserId)
			fmt.Printf("* %s left %s\n", evt.UserId, evt.RoomName)
		case server.EventRoomInfo:
			var evt server.RoomInfo
			if err := json.Unmarshal(env.Data, &evt); err != nil {
				log.Printf("unmarshal %s: %v", env.Event, err)
				continue
			}
			fmt.Printf("* joined %s (%d online)\n", evt.RoomName, evt.MemberCount)
		case server.EventMessageError:
			var evt server.MessageError
			if err := json.Unmarshal(env.Data, &evt); err != nil {
				log.Printf("unmarshal %s: %v", env.Event, err)
				continue
			}
			fmt.Printf("! %s\n", evt.Error)
		}
	}
}

// writeLoop reads stdin lines and sends each as a message: persist over
// REST first, then relay over the socket, then clear the typing state.
func writeLoop(conn *websocket.Conn, client *http.Client, baseUrl, myId, conversationId, roomName string) {
	debouncer := reconcile.NewDebouncer(reconcile.DefaultQuietPeriod,
		func() {
			sendEvent(conn, server.EventTypingIndicator, server.TypingIndicator{
				RoomName: roomName,
				UserId:   myId,
			})
		},
		func() {
			sendEvent(conn, server.EventStopTyping, server.StopTyping{
				RoomName: roomName,
				UserId:   myId,
			})
		})

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		debouncer.Input(text)

		if err := postMessage(client, baseUrl, conversationId, text); err != nil {
			log.Printf("post message: %v", err)
			continue
		}

		err := sendEvent(conn, server.EventSendMessage, server.SendMessage{
			RoomName:       roomName,
			UserId:         myId,
			Content:        text,
			ConversationId: conversationId,
		})
		if err != nil {
			log.Printf("send: %v", err)
			return
		}

		debouncer.Flush()
	}
}

func postMessage(client *http.Client, baseUrl, conversationId, content string) error {
	body, err := json.Marshal(api.SendMessageRequest{
		ConversationId: conversationId,
		Content:        content,
	})
	if err != nil {
		return err
	}

	resp, err := client.Post(baseUrl+"/api/messages", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

func printMessage(myId string, msg types.Message) {
	sender := msg.SenderId
	if sender == myId {
		sender = "me"
	}
	fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Local().Format("15:04"), sender, msg.Content)
}
