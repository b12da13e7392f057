package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirerelay/internal/proto"
)

// frame is an outbound frame with its payload left raw.
type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	identity := flag.String("identity", "tester", "identity to register")
	room := flag.String("room", "general", "room key")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	if err := send(proto.InboundTypeRegister, proto.RegisterData{
		Identity:    proto.StringKey(*identity),
		DisplayName: *identity,
	}); err != nil {
		return err
	}
	if err := send(proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomKey: proto.StringKey(*room)}); err != nil {
		return err
	}

	msgID := fmt.Sprintf("%q", fmt.Sprintf("smoke-%d", time.Now().UnixNano()))
	sent := false

	for {
		var out frame
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		if out.Type == proto.OutboundTypeError && out.Error != nil {
			return fmt.Errorf("server error %s: %s", out.Error.Code, out.Error.Msg)
		}
		fmt.Printf("Received: event=%s data=%s\n", out.Event, out.Data)

		switch out.Event {
		case proto.NameUserBlocked:
			return fmt.Errorf("identity %q is blocked", *identity)
		case proto.NameRoomJoined:
			if sent {
				continue
			}
			sent = true
			ts, _ := json.Marshal(time.Now().UnixMilli())
			body, _ := json.Marshal(*text)
			sender, _ := json.Marshal(*identity)
			if err := send(proto.InboundTypeSendMessage, proto.SendMessageData{
				RoomKey:        proto.StringKey(*room),
				Message:        body,
				SenderIdentity: sender,
				SenderDisplay:  sender,
				From:           sender,
				Timestamp:      ts,
				MessageID:      json.RawMessage(msgID),
			}); err != nil {
				return err
			}
		case proto.NameNewMessage:
			var evt proto.EventNewMessage
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				return fmt.Errorf("unmarshal new-message: %w", err)
			}
			if string(evt.MessageID) == msgID {
				fmt.Printf("Round trip ok: room=%s from=%s text=%s\n", evt.RoomKey, evt.SenderIdentity, evt.Message)
				return nil
			}
		}
	}
}
