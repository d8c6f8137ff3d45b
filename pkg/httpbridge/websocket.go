package httpbridge

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// handleWebSocket treats every text frame as a ChatRequest and answers with
// a ChatResponse or ErrorResponse frame. No history is kept between frames.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxRequestBytes)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("WebSocket closed unexpectedly")
			}
			return
		}

		var reply interface{}
		var req ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			reply = ErrorResponse{Detail: "Invalid request: " + err.Error()}
		} else if resp, _, errResp := s.runChat(r.Context(), req); errResp != nil {
			reply = errResp
		} else {
			reply = resp
		}

		if err := conn.WriteJSON(reply); err != nil {
			log.Debug().Err(err).Msg("WebSocket write failed")
			return
		}
	}
}
