package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirerelay/internal/proto"
)

type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

const help = `commands:
  /join <room>     switch to another room
  /status <id>     ask for the presence of an identity
  /block <id>      block an identity (admin)
  /unblock <id>    unblock an identity (admin)
  /logout          log out and keep the connection
anything else is sent to the current room`

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	identity := flag.String("identity", "cli-user", "identity to register")
	room := flag.String("room", "general", "room to join")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	c := &chat{conn: conn, identity: *identity, room: *room}
	c.send(ctx, proto.InboundTypeRegister, proto.RegisterData{Identity: proto.StringKey(*identity), DisplayName: *identity})
	c.send(ctx, proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomKey: proto.StringKey(*room)})

	fmt.Printf("Connected to %s as %s in room %s\n", *addr, *identity, *room)
	fmt.Println(help)

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	c.writeLoop(ctx)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

type chat struct {
	conn     *websocket.Conn
	identity string
	room     string
}

func (c *chat) send(ctx context.Context, typ string, data any) bool {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("marshal %s: %v", typ, err)
		return false
	}
	if err := wsjson.Write(ctx, c.conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		log.Printf("send error: %v", err)
		return false
	}
	return true
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var out frame
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if out.Type == proto.OutboundTypeError && out.Error != nil {
			fmt.Printf("! %s: %s\n", out.Error.Code, out.Error.Msg)
			continue
		}

		switch out.Event {
		case proto.NameNewMessage:
			var evt proto.EventNewMessage
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				log.Printf("unmarshal new-message: %v", err)
				continue
			}
			fmt.Printf("[%s] %s: %s\n", evt.RoomKey, senderName(evt), evt.Message)
		case proto.NameUserStatusUpdate:
			var evt proto.EventUserStatus
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				log.Printf("unmarshal user-status-update: %v", err)
				continue
			}
			fmt.Printf("* %s is %s\n", evt.Identity, evt.Status)
		case proto.NameRoomJoined:
			var evt proto.EventRoomJoined
			if err := json.Unmarshal(out.Data, &evt); err == nil {
				fmt.Printf("* joined room %s\n", evt.RoomKey)
			}
		case proto.NameOnlineUsers:
			var users []proto.OnlineUser
			if err := json.Unmarshal(out.Data, &users); err == nil {
				fmt.Printf("* %d online\n", len(users))
			}
		case proto.NameUserBlocked, proto.NameUserStatusUpdated:
			var evt proto.EventBlocked
			if err := json.Unmarshal(out.Data, &evt); err == nil {
				fmt.Printf("* %s blocked=%t\n", evt.Identity, evt.Blocked)
			}
		default:
			fmt.Printf("event=%s data=%s\n", out.Event, out.Data)
		}
	}
}

// senderName prefers the display name and falls back to the raw identity.
func senderName(evt proto.EventNewMessage) string {
	for _, raw := range []json.RawMessage{evt.SenderDisplay, evt.SenderIdentity} {
		var name string
		if err := json.Unmarshal(raw, &name); err == nil && name != "" {
			return name
		}
	}
	return string(evt.SenderIdentity)
}

func (c *chat) writeLoop(ctx context.Context) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if !c.handleLine(ctx, text) {
				return
			}
		}
	}
}

func (c *chat) handleLine(ctx context.Context, text string) bool {
	cmd, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/join":
		if arg == "" {
			fmt.Println(help)
			return true
		}
		c.room = arg
		return c.send(ctx, proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomKey: proto.StringKey(arg)})
	case "/status":
		return c.send(ctx, proto.InboundTypeRequestStatus, proto.IdentityData{Identity: proto.StringKey(arg)})
	case "/block", "/unblock":
		return c.send(ctx, proto.InboundTypeAdminBlock, proto.AdminBlockData{Identity: proto.StringKey(arg), Blocked: cmd == "/block"})
	case "/logout":
		return c.send(ctx, proto.InboundTypeLogout, proto.IdentityData{Identity: proto.StringKey(c.identity)})
	case "/help":
		fmt.Println(help)
		return true
	}

	ts, _ := json.Marshal(time.Now().UnixMilli())
	id, _ := json.Marshal(fmt.Sprintf("%s-%d", c.identity, time.Now().UnixNano()))
	body, _ := json.Marshal(text)
	sender, _ := json.Marshal(c.identity)
	return c.send(ctx, proto.InboundTypeSendMessage, proto.SendMessageData{
		RoomKey:        proto.StringKey(c.room),
		Message:        body,
		SenderIdentity: sender,
		SenderDisplay:  sender,
		From:           sender,
		Timestamp:      ts,
		MessageID:      id,
	})
}
