package feed

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/richxcame/upi-guard/pkg/logger"
	ws "github.com/richxcame/upi-guard/pkg/websocket"
	"go.uber.org/zap"
)

// Handler upgrades feed connections
type Handler struct {
	hub      *ws.Hub
	upgrader *gorillaws.Upgrader
}

// NewHandler creates a feed handler. allowedOrigins follows ws.NewUpgrader.
func NewHandler(hub *ws.Hub, allowedOrigins []string) *Handler {
	return &Handler{hub: hub, upgrader: ws.NewUpgrader(allowedOrigins)}
}

// Connect upgrades the request and registers a feed client. Clients send
// {"type":"subscribe","data":{"upi_id":"..."}} to watch one id.
func (h *Handler) Connect(c *gin.Context) {
	clientID := uuid.NewString()
	log := logger.WithContext(c.Request.Context()).With(zap.String("client_id", clientID))

	// The upgrader has already written an HTTP error on failure.
	if err := ws.Serve(h.hub, h.upgrader, c.Writer, c.Request, clientID, log); err != nil {
		log.Debug("feed connect failed", zap.Error(err))
	}
}

// RegisterRoutes registers the feed route
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/feed", h.Connect)
}
