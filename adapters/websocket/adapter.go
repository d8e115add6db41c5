package websocket

import (
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/ryandem1/minesweeper-async/realtime"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
)

// Handler returns an http.Handler that upgrades to WebSocket and streams
// board lifecycle events from the hub until the client goes away.
func Handler(hub *realtime.Hub) http.Handler {
	upgrader := gorillaws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		id, ch := hub.Subscribe(256)
		defer hub.Unsubscribe(id)

		// the read side only exists to notice the peer closing
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(pingPeriod)
		defer ping.Stop()
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(gorillaws.TextMessage, realtime.MarshalJSON(ev)); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(gorillaws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-gone:
				return
			case <-r.Context().Done():
				return
			}
		}
	})
}
