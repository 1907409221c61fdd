package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/lxzan/gws"
	"go.uber.org/zap"

	"github.com/ArowuTest/raffle-ledger-backend/internal/logger"
	"github.com/ArowuTest/raffle-ledger-backend/internal/raffle"
	"github.com/ArowuTest/raffle-ledger-backend/internal/services"
	"github.com/ArowuTest/raffle-ledger-backend/internal/utils"
)

const sessionSubscription = "subscription"

// EventHandler serves the event log and the live websocket feed
type EventHandler struct {
	eventService services.EventService
	upgrader     *gws.Upgrader
	buffer       int
}

// NewEventHandler creates a new EventHandler. buffer is the per-connection
// queue of the live feed; a connection that falls further behind drops events.
func NewEventHandler(eventService services.EventService, buffer int) *EventHandler {
	h := &EventHandler{eventService: eventService, buffer: buffer}
	h.upgrader = gws.NewUpgrader(streamHandler{}, &gws.ServerOption{})
	return h
}

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(c *gin.Context) {
	h.history(c, "")
}

// RaffleEvents handles GET /raffles/:address/events
func (h *EventHandler) RaffleEvents(c *gin.Context) {
	h.history(c, c.Param("address"))
}

func (h *EventHandler) history(c *gin.Context, address string) {
	page, limit := utils.ParsePage(c.Query("page"), c.Query("limit"))
	events, err := h.eventService.History(c.Request.Context(), address, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "page": page, "limit": limit})
}

// Stream handles GET /events/ws. The optional raffle query parameter limits
// the feed to one raffle.
func (h *EventHandler) Stream(c *gin.Context) {
	var filter string
	if q := c.Query("raffle"); q != "" {
		if !common.IsHexAddress(q) {
			badRequest(c, "raffle must be a hex address")
			return
		}
		filter = common.HexToAddress(q).Hex()
	}

	// Subscribe before the handshake completes so nothing committed after
	// the client sees the 101 response is missed.
	sub := h.eventService.Subscribe(h.buffer)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request)
	if err != nil {
		sub.Close()
		logger.Warn("websocket upgrade failed", zap.String("ip", c.ClientIP()), zap.Error(err))
		if !c.Writer.Written() {
			c.AbortWithStatus(http.StatusBadRequest)
		}
		return
	}
	conn.Session().Store(sessionSubscription, sub)

	go forward(conn, sub, filter)
	go conn.ReadLoop()
}

func forward(conn *gws.Conn, sub *raffle.Subscription, filter string) {
	for ev := range sub.C() {
		if filter != "" && ev.Raffle != filter {
			continue
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			logger.Error("encode event", zap.Uint64("seq", ev.Seq), zap.Error(err))
			continue
		}
		if err := conn.WriteMessage(gws.OpcodeText, payload); err != nil {
			return
		}
	}
}

// streamHandler implements gws.Event for the server side of the feed.
// Clients only listen; inbound frames are discarded.
type streamHandler struct{}

func (streamHandler) OnOpen(conn *gws.Conn) {
	logger.Debug("event stream opened", zap.String("remote", conn.RemoteAddr().String()))
}

func (streamHandler) OnClose(conn *gws.Conn, err error) {
	if v, ok := conn.Session().Load(sessionSubscription); ok {
		sub := v.(*raffle.Subscription)
		if dropped := sub.Dropped(); dropped > 0 {
			logger.Info("event stream lagged", zap.Uint64("dropped", dropped))
		}
		sub.Close()
	}
	logger.Debug("event stream closed", zap.Error(err))
}

func (streamHandler) OnPing(conn *gws.Conn, payload []byte) {
	_ = conn.WritePong(payload)
}

func (streamHandler) OnPong(conn *gws.Conn, payload []byte) {}

func (streamHandler) OnMessage(conn *gws.Conn, message *gws.Message) {
	message.Close()
}

var _ gws.Event = streamHandler{}
