package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"admin-mirror/internal/models"
)

const (
	feedWriteTimeout = 10 * time.Second
	feedBuffer       = 16
)

// feed streams the live event feed over a websocket: the current snapshot
// on connect, then a full snapshot on every change. Slow consumers skip
// intermediate snapshots rather than stalling the mirror.
func (s *Server) feed(c *gin.Context) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range s.cfg.CORSOrigins {
				if origin == allowed || allowed == "*" {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("feed_upgrade_failed", "error", err)
		return
	}
	defer conn.Close()

	updates := make(chan []*models.EventInfo, feedBuffer)
	sub := s.mirror.SubscribeToEvents(func(events []*models.EventInfo) {
		// Called with the mirror lock held; never block here.
		select {
		case updates <- events:
		default:
		}
	})
	defer sub.Unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case events := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := conn.WriteJSON(gin.H{"events": events}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
