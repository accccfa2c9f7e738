// Interactive line-oriented client for the SMPTE timecode server.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"sync"
)

type serverMessage struct {
	Type                string   `json:"type"`
	Message             string   `json:"message"`
	SupportedFramerates []string `json:"supported_framerates"`
	SessionID           string   `json:"session_id"`
	Framerate           string   `json:"framerate"`
	InitialTimecode     string   `json:"initial_timecode"`
	CurrentTimecode     string   `json:"current_timecode"`
	Timecode            string   `json:"timecode"`
	Running             bool     `json:"running"`
}

// clientState is written by the server-reader goroutine and read by the
// command loop.
type clientState struct {
	mu        sync.Mutex
	sessionID string
	framerate string
}

func (s *clientState) set(sessionID, framerate string) {
	s.mu.Lock()
	s.sessionID = sessionID
	s.framerate = framerate
	s.mu.Unlock()
}

func (s *clientState) get() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID, s.framerate
}

func main() {
	host := flag.String("host", "localhost", "Server host")
	port := flag.Int("port", 8080, "Server port")
	flag.Parse()

	addr := fmt.Sprintf("%s:%d", *host, *port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer conn.Close()
	fmt.Printf("Connected to SMPTE Timecode Server at %s\n", addr)

	state := &clientState{}
	done := make(chan struct{})
	go readServer(conn, state, done)

	stdin := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-done:
			fmt.Println("Disconnected from server")
			return
		default:
		}
		if !stdin.Scan() {
			return
		}
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}
		if !dispatch(conn, state, line) {
			return
		}
	}
}

// dispatch handles one user command; returns false to quit.
func dispatch(conn net.Conn, state *clientState, line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "create":
		if len(args) < 1 {
			fmt.Println("Usage: create <framerate> [initial_timecode]")
			return true
		}
		msg := map[string]any{"type": "create_session", "framerate": args[0]}
		if len(args) > 1 {
			msg["initial_timecode"] = args[1]
		}
		send(conn, msg)
	case "join":
		if len(args) != 1 {
			fmt.Println("Usage: join <session_id>")
			return true
		}
		send(conn, map[string]any{"type": "join_session", "session_id": args[0]})
	case "leave":
		send(conn, map[string]any{"type": "leave_session"})
		state.set("", "")
		fmt.Println("Left session")
	case "start":
		send(conn, map[string]any{"type": "start_timecode"})
	case "stop":
		send(conn, map[string]any{"type": "stop_timecode"})
	case "reset":
		msg := map[string]any{"type": "reset_timecode"}
		if len(args) > 0 {
			msg["timecode"] = args[0]
		}
		send(conn, msg)
	case "status":
		if id, fr := state.get(); id == "" {
			fmt.Println("Not in a session")
		} else {
			fmt.Printf("Session: %s (%s fps)\n", id, fr)
		}
	case "help":
		printHelp()
	case "quit", "exit":
		return false
	default:
		fmt.Printf("Unknown command: %s (try 'help')\n", cmd)
	}
	return true
}

func send(conn net.Conn, msg map[string]any) {
	data, err := json.Marshal(msg)
	if err != nil {
		fmt.Printf("Error encoding command: %v\n", err)
		return
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		fmt.Printf("Error sending command: %v\n", err)
	}
}

func readServer(conn net.Conn, state *clientState, done chan<- struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var msg serverMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			fmt.Println("Received invalid JSON from server")
			continue
		}
		printMessage(state, msg)
	}
}

func printMessage(state *clientState, msg serverMessage) {
	switch msg.Type {
	case "welcome":
		fmt.Printf("\n%s\n", msg.Message)
		fmt.Printf("Supported framerates: %s\n", strings.Join(msg.SupportedFramerates, ", "))
		printHelp()
	case "session_created":
		state.set(msg.SessionID, msg.Framerate)
		fmt.Printf("\nSession created: %s\n", msg.SessionID)
		fmt.Printf("Framerate: %s fps\n", msg.Framerate)
		fmt.Printf("Initial timecode: %s\n", msg.InitialTimecode)
	case "session_joined":
		state.set(msg.SessionID, msg.Framerate)
		status := "Stopped"
		if msg.Running {
			status = "Running"
		}
		fmt.Printf("\nJoined session: %s\n", msg.SessionID)
		fmt.Printf("Framerate: %s fps\n", msg.Framerate)
		fmt.Printf("Current timecode: %s\n", msg.CurrentTimecode)
		fmt.Printf("Status: %s\n", status)
	case "timecode_update":
		// Overwrite in place so the counter reads like a display.
		fmt.Printf("\rTimecode: %s", msg.Timecode)
	case "timecode_started":
		fmt.Printf("\nTimecode started at %s\n", msg.Timecode)
	case "timecode_stopped":
		fmt.Printf("\nTimecode stopped at %s\n", msg.Timecode)
	case "timecode_reset":
		fmt.Printf("\nTimecode reset to %s\n", msg.Timecode)
	case "error":
		fmt.Printf("\nError: %s\n", msg.Message)
	default:
		fmt.Printf("\nUnknown message type: %s\n", msg.Type)
	}
}

func printHelp() {
	fmt.Println(`
Commands:
  create <framerate> [tc]  Create a session (e.g. create 30 00:00:00:00)
  join <session_id>        Join an existing session
  leave                    Leave the current session
  start                    Start the session timecode
  stop                     Stop the session timecode
  reset [tc]               Reset the timecode (default 00:00:00:00)
  status                   Show current session
  help                     Show this help
  quit                     Exit`)
}
