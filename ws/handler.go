package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// RoomDirectory lets the subscribe endpoint reject connections for rooms
// that do not exist.
type RoomDirectory interface {
	RoomExists(name string) bool
}

// ServeWS upgrades GET /ws?room=<name>&playerId=<id> into a subscriber
// connection. Origin filtering happens in the CORS middleware.
func (h *Hub) ServeWS(rooms RoomDirectory) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}

	return func(ctx *gin.Context) {
		room := ctx.Query("room")
		playerID := ctx.Query("playerId")
		if room == "" || playerID == "" {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "room and playerId are required"})
			return
		}
		if !rooms.RoomExists(room) {
			ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}

		conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			log.Error().Err(err).Str("room", room).Msg("websocket upgrade failed")
			return
		}

		c := newClient(h, conn, room, playerID)
		h.add(c)
		go c.writePump()
		go c.readPump()
	}
}
