// Interactive websocket client for poking at a running engine. Joins a room
// queue and exposes the play commands on stdin.
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	MsgTypeHeartbeat   = 1
	MsgTypeJoinQueue   = 101
	MsgTypeLeaveRoom   = 102
	MsgTypeChooseSuite = 201
	MsgTypeSubmitPlay  = 202
	MsgTypeNominateMVP = 203
)

// send frames and sends a message to the server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func sendJSON(c *websocket.Conn, msgID uint16, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Println("Marshal error:", err)
		return
	}
	if err := send(c, msgID, data); err != nil {
		log.Println("Write error:", err)
	}
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	roomID := flag.String("room", "rookie-1", "room to queue for")
	name := flag.String("name", "player", "display name")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
		}
	}()

	// Heartbeat loop
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				send(c, MsgTypeHeartbeat, nil)
			}
		}
	}()

	participantID := uuid.New().String()
	log.Printf("Queueing for room %s as %s (%s)", *roomID, *name, participantID)
	sendJSON(c, MsgTypeJoinQueue, map[string]string{
		"room_id":        *roomID,
		"participant_id": participantID,
		"name":           *name,
	})

	log.Println("Commands:")
	log.Println("  suite <CEO|CFO|CTO|COO|CMO|CHRO>")
	log.Println("  play <role_card_id> [synergy_card_id] [golden|mvp]")
	log.Println("  mvp <role_card_id>   (empty id passes)")
	log.Println("  leave")

	// Write loop
	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			text, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			fields := strings.Fields(strings.TrimSpace(text))
			if len(fields) == 0 {
				continue
			}

			switch fields[0] {
			case "suite":
				if len(fields) < 2 {
					log.Println("Usage: suite <CEO|CFO|CTO|COO|CMO|CHRO>")
					continue
				}
				sendJSON(c, MsgTypeChooseSuite, map[string]string{"suite": fields[1]})
			case "play":
				if len(fields) < 2 {
					log.Println("Usage: play <role_card_id> [synergy_card_id] [golden|mvp]")
					continue
				}
				req := map[string]string{"role_card_id": fields[1]}
				for _, f := range fields[2:] {
					if f == "golden" || f == "mvp" {
						req["special"] = f
					} else {
						req["synergy_card_id"] = f
					}
				}
				sendJSON(c, MsgTypeSubmitPlay, req)
			case "mvp":
				req := map[string]string{"role_card_id": ""}
				if len(fields) > 1 {
					req["role_card_id"] = fields[1]
				}
				sendJSON(c, MsgTypeNominateMVP, req)
			case "leave":
				sendJSON(c, MsgTypeLeaveRoom, map[string]string{})
			default:
				log.Printf("Unknown command %q", fields[0])
			}
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		log.Println("Interrupt received, closing connection.")
		err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			log.Println("Write close error:", err)
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
