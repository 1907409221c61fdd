package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
	"github.com/ArowuTest/raffle-ledger-backend/internal/raffle"
)

type recordingEvents struct {
	bus     *raffle.EventBus
	buffers []int
}

func (r *recordingEvents) History(context.Context, string, int, int) ([]*models.Event, error) {
	return nil, nil
}

func (r *recordingEvents) Subscribe(buffer int) *raffle.Subscription {
	r.buffers = append(r.buffers, buffer)
	return r.bus.Subscribe(buffer)
}

func TestStreamUsesConfiguredBuffer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	events := &recordingEvents{bus: raffle.NewEventBus()}
	h := NewEventHandler(events, 512)

	router := gin.New()
	router.GET("/events/ws", h.Stream)

	// a plain GET fails the handshake after subscribing
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/ws", nil))
	assert.GreaterOrEqual(t, w.Code, http.StatusBadRequest)
	assert.Equal(t, []int{512}, events.buffers)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/ws?raffle=nope", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []int{512}, events.buffers)
}
