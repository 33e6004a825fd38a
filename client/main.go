package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/minesweeper/network"
	"github.com/wfunc/minesweeper/viewmodel"
)

const heartbeatInterval = 20 * time.Second

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// send formats and sends a message to the WebSocket server.
func (c *conn) send(msgID uint16, data []byte) error {
	packet, err := network.Encode(msgID, data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.BinaryMessage, packet)
}

func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		log.Println("Write close error:", err)
	}
}

func handle(g *grid, packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeGameStart:
		var v viewmodel.GameView
		if err := json.Unmarshal(packet.Data, &v); err != nil {
			log.Printf("Bad GameStart: %v", err)
			return
		}
		g.reset(v)
		g.render(os.Stdout)
	case network.MsgTypeGameSync:
		var v viewmodel.SyncView
		if err := json.Unmarshal(packet.Data, &v); err != nil {
			log.Printf("Bad GameSync: %v", err)
			return
		}
		g.apply(v)
		g.render(os.Stdout)
	case network.MsgTypeGameEnd:
		var v viewmodel.EndView
		if err := json.Unmarshal(packet.Data, &v); err != nil {
			log.Printf("Bad GameEnd: %v", err)
			return
		}
		g.finish(v)
		g.render(os.Stdout)
		if v.Outcome == "won" {
			fmt.Println("You won! Type 'new' to play again.")
		} else {
			fmt.Println("Boom. Type 'new' to play again.")
		}
	case network.MsgTypeCreateRoom:
		var resp map[string]string
		json.Unmarshal(packet.Data, &resp)
		log.Printf("Seated in room %s", resp["room_id"])
	case network.MsgTypeError:
		var resp map[string]string
		json.Unmarshal(packet.Data, &resp)
		fmt.Println("error:", resp["error"])
	case network.MsgTypeHeartbeat:
	default:
		log.Printf("<- RECV (ID: %d): %s", packet.MsgID, string(packet.Data))
	}
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	player := flag.String("player", "", "player name used for stats")
	preset := flag.String("preset", "", "grid preset, empty for the server default")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer ws.Close()
	c := &conn{ws: ws}

	done := make(chan struct{})

	// Read loop; the grid is only touched here
	go func() {
		defer close(done)
		g := &grid{}
		for {
			_, message, err := ws.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			packet, err := network.Decode(message)
			if err != nil {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			handle(g, packet)
		}
	}()

	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.send(network.MsgTypeHeartbeat, nil); err != nil {
					return
				}
			}
		}
	}()

	req, _ := json.Marshal(map[string]string{"player": *player, "preset": *preset})
	if err := c.send(network.MsgTypeCreateRoom, req); err != nil {
		log.Println("Write error:", err)
		return
	}
	fmt.Println(errUsage)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			c.close()
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line, ok := <-lines:
			if !ok {
				c.close()
				return
			}
			cmd, err := parseCommand(line)
			if err != nil {
				fmt.Println(err)
				continue
			}
			if cmd.quit {
				c.send(network.MsgTypeLeaveRoom, nil)
				c.close()
				return
			}
			if err := c.send(cmd.msgID, cmd.data); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}
