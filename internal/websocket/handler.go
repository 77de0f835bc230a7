package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/yvesmugisha901/umuturage-backend/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and runs it as a hub
// client for the caller's user id.
func HandleWebSocket(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err, "user_id", userID)
			return
		}

		NewClient(hub, conn, userID).Run(r.Context())
	}
}
