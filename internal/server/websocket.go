package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/michaelbrown/plotbox/internal/sandbox"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local-only deployment, no origin policy
	},
}

// wsIncoming is a message from the client.
type wsIncoming struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

// wsOutgoing is a message to the client.
type wsOutgoing struct {
	Type   string          `json:"type"`
	Error  string          `json:"error,omitempty"`
	Result *sandbox.Record `json:"result,omitempty"`
	RunID  string          `json:"run_id,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	s.conns.Add(conn)
	defer s.conns.Remove(conn)

	for {
		var msg wsIncoming
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			log.Printf("websocket read error: %v", err)
			return
		}

		if msg.Type != "execute" || msg.Code == "" {
			wsWriteJSON(conn, wsOutgoing{Type: "error", Error: "invalid message"})
			continue
		}

		res := s.exec.Run(r.Context(), sandbox.Request{Source: msg.Code})
		rec := sandbox.Encode(res)

		out := wsOutgoing{Type: "result", Result: &rec}

		if s.store != nil {
			run := runFromResult(msg.Code, res)
			if err := s.store.CreateRun(r.Context(), run); err != nil {
				log.Printf("failed to save run: %v", err)
			} else {
				out.RunID = run.ID
			}
		}

		wsWriteJSON(conn, out)
	}
}

func wsWriteJSON(conn *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("websocket marshal error: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("websocket write error: %v", err)
	}
}
