package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	streamPingInterval = 30 * time.Second
	streamWriteWait    = 5 * time.Second
)

// SolveStreamHandler upgrades to a WebSocket and forwards solve events for
// one solve id. Subscribing with a client-chosen id before POSTing the solve
// yields live incumbents; connecting after the solve finished replays the
// terminal event from the store.
func (s *Server) SolveStreamHandler(w http.ResponseWriter, r *http.Request, id string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if rec, err := s.Store.GetSolve(r.Context(), id); err == nil {
		_ = conn.WriteJSON(SolveEvent{
			Type: "solve.finished",
			Data: map[string]any{
				"solveId":       rec.ID,
				"outcome":       string(rec.Outcome),
				"objective":     rec.Objective,
				"totalDistance": rec.TotalDistance,
			},
		})
		return
	}

	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
			if evt.Type == "solve.finished" {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
