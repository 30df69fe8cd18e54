// Package graphview is a live debug view over a kernel.Kernel: every
// connected websocket client receives a PlantUML dump of the dependency
// graph whenever a mutating command changes it. It's adapted from
// spreadsheet/server.go's upgrader/clients/broadcast pattern, with karl's
// cell-grid UpdateRequest/UpdateResponse protocol replaced by StatForge's
// cell-kind command set and graph.DumpPlantUML() standing in for the
// spreadsheet's per-cell value broadcasts -- StatForge has no visible grid,
// so the graph dump is the thing worth pushing.
package graphview

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Drox346/statforge/kernel"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local debug tool, not exposed beyond dev use
	},
}

// Server pushes graph.DumpPlantUML() output to every connected client
// whenever a command mutates the wrapped Kernel.
type Server struct {
	kernel  *kernel.Kernel
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
}

// NewServer wraps k for live inspection. k is not safe for concurrent use
// from elsewhere while a Server is running against it (spec §5); callers
// that also drive k from a REPL or remotekernel session must serialize
// those calls themselves.
func NewServer(k *kernel.Kernel) *Server {
	return &Server{
		kernel:  k,
		clients: make(map[*websocket.Conn]bool),
	}
}

// command is the inbound websocket message shape. Kind selects which
// Kernel method to call; the remaining fields are interpreted per kind.
type command struct {
	Kind         string   `json:"kind"`
	ID           string   `json:"id"`
	Value        float64  `json:"value"`
	Formula      string   `json:"formula"`
	Dependencies []string `json:"dependencies"`
}

type graphMessage struct {
	Type     string `json:"type"`
	PlantUML string `json:"plantuml,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("graphview: upgrade error:", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	s.sendDumpTo(conn)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var cmd command
		if err := json.Unmarshal(msg, &cmd); err != nil {
			s.sendErrorTo(conn, err.Error())
			continue
		}

		if err := s.apply(cmd); err != nil {
			s.sendErrorTo(conn, err.Error())
			continue
		}
		s.broadcastDump()
	}
}

func (s *Server) apply(cmd command) error {
	switch cmd.Kind {
	case "create_value":
		return s.kernel.CreateValueCell(cmd.ID, cmd.Value)
	case "create_formula":
		return s.kernel.CreateFormulaCell(cmd.ID, cmd.Formula)
	case "create_aggregator":
		return s.kernel.CreateAggregatorCell(cmd.ID, cmd.Dependencies)
	case "set_value":
		return s.kernel.SetCellValue(cmd.ID, cmd.Value)
	case "set_formula":
		return s.kernel.SetCellFormula(cmd.ID, cmd.Formula)
	case "set_dependencies":
		return s.kernel.SetCellDependencies(cmd.ID, cmd.Dependencies)
	case "remove":
		return s.kernel.RemoveCell(cmd.ID)
	case "evaluate":
		return s.kernel.Evaluate()
	default:
		return nil
	}
}

func (s *Server) sendDumpTo(conn *websocket.Conn) {
	msg := graphMessage{Type: "graph", PlantUML: s.kernel.Graph().DumpPlantUML()}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("graphview: initial dump write failed: %v", err)
	}
}

func (s *Server) sendErrorTo(conn *websocket.Conn, message string) {
	msg := graphMessage{Type: "error", Message: message}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("graphview: error write failed: %v", err)
	}
}

func (s *Server) broadcastDump() {
	msg := graphMessage{Type: "graph", PlantUML: s.kernel.Graph().DumpPlantUML()}

	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		if err := client.WriteJSON(msg); err != nil {
			log.Printf("graphview: broadcast write failed: %v", err)
			_ = client.Close()
			delete(s.clients, client)
		}
	}
}

// Start runs the HTTP server on addr, exposing the live graph dump at /ws.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWebSocket)
	log.Printf("graphview: serving graph debug view at ws://%s/ws", addr)
	return http.ListenAndServe(addr, mux)
}
