package endpoints

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/pausetime/internal/http/api"
	"github.com/Nixie-Tech-LLC/pausetime/internal/panel"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type EventsController struct {
	panel *panel.Panel
}

// EventsModule mounts GET /events, a websocket that pushes every panel
// snapshot, starting with the current one.
func EventsModule(p *panel.Panel) api.Module {
	ctl := &EventsController{panel: p}
	return api.ModuleFunc(func(c *api.Controller) {
		c.Handle(http.MethodGet, "/events", ctl.stream)
	})
}

func (e *EventsController) stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("[events] websocket upgrade failed")
		return
	}
	defer conn.Close()

	updates, unsubscribe := e.panel.Subscribe()
	defer unsubscribe()

	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("[events] subscriber connected")
	defer log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("[events] subscriber disconnected")

	// the read pump only exists to notice the peer going away
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := writeSnapshot(conn, snap); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap panel.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snap)
}
