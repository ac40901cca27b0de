package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
	ws "github.com/ikkim/storefront-backend/internal/websocket"
)

// OrderStreamController upgrades authenticated users to a websocket that
// receives their order events.
type OrderStreamController struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewOrderStreamController(hub *ws.Hub, allowedOrigins []string) *OrderStreamController {
	allowed := make(map[string]bool, len(allowedOrigins))
	wildcard := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			wildcard = true
		}
		allowed[origin] = true
	}

	return &OrderStreamController{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// non-browser clients send no Origin
				return origin == "" || wildcard || allowed[origin]
			},
		},
	}
}

// Connect handles the websocket upgrade. The token arrives as a query
// parameter and is never logged.
// GET /api/v1/ws/orders
func (ctrl *OrderStreamController) Connect(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("Failed to upgrade to WebSocket", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}

	ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, userID).Start()

	log.Info("WebSocket connection established", map[string]interface{}{
		"user_id": userID,
	})
}
