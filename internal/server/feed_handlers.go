package server

import (
	"log/slog"

	"vexillum/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// FeedWebsocket streams content events to the browser. Signed-in viewers
// count against the per-user connection limit; anonymous ones do not.
// @Summary Live content feed (websocket)
// @Tags feed
// @Param token query string false "Session token"
// @Success 101
// @Router /ws/feed [get]
func (s *Server) FeedWebsocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		var userID uint
		if uid, ok := conn.Locals("userID").(uint); ok {
			userID = uid
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("feed connection rejected",
				slog.Uint64("user_id", uint64(userID)),
				slog.String("error", err.Error()),
			)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
