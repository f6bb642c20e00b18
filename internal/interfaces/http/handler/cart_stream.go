package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/storefront"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// SSE event names
const (
	SSEEventConnected = "connected"
	SSEEventCartCount = "cart_count"
	SSEEventCartError = "cart_error"
	SSEEventHeartbeat = "heartbeat"
)

// sseMessageBufferSize lets count changes queue while a slow client
// catches up
const sseMessageBufferSize = 32

// SSEClient represents a connected SSE client
type SSEClient struct {
	ID         string
	SessionKey string
	Chan       chan SSEMessage
	Done       chan struct{}
	closed     atomic.Bool
	doneOnce   sync.Once
}

// disconnect ends the client's stream
func (c *SSEClient) disconnect() {
	c.doneOnce.Do(func() { close(c.Done) })
}

// send queues msg without blocking the publisher. It reports false when the
// client is gone or its buffer is full.
func (c *SSEClient) send(msg SSEMessage) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.Chan <- msg:
		return true
	default:
		return false
	}
}

// sendLatest queues msg like send, but when the buffer is full it drops the
// oldest queued message to make room, so the client always ends on msg
func (c *SSEClient) sendLatest(msg SSEMessage) bool {
	for range 2 {
		if c.send(msg) {
			return true
		}
		if c.closed.Load() {
			return false
		}
		select {
		case <-c.Chan:
		default:
		}
	}
	return false
}

// SSEMessage represents a message to be sent to SSE clients
type SSEMessage struct {
	Event string `json:"event"`
	Data  string `json:"data"`
	ID    string `json:"id,omitempty"`
}

// CartCountEvent is the payload of a cart_count event
type CartCountEvent struct {
	Count int `json:"count"`
}

// CartStreamHandler pushes cart count changes of the caller's session over
// Server-Sent Events
type CartStreamHandler struct {
	BaseHandler
	carts      *cart.Service
	events     shared.EventSubscriber
	metrics    *telemetry.CheckoutMetrics
	logger     *zap.Logger
	clients    sync.Map // map[string]*SSEClient
	ctx        context.Context
	cancel     context.CancelFunc
	heartbeat  time.Duration
	maxClients int
	started    bool
	startMu    sync.Mutex
}

// CartStreamOption is a functional option for configuring the handler
type CartStreamOption func(*CartStreamHandler)

// WithSSELogger sets the logger for the handler
func WithSSELogger(logger *zap.Logger) CartStreamOption {
	return func(h *CartStreamHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithSSEHeartbeat sets the heartbeat interval
func WithSSEHeartbeat(interval time.Duration) CartStreamOption {
	return func(h *CartStreamHandler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// WithSSEMaxClients sets the maximum number of concurrent SSE clients
func WithSSEMaxClients(max int) CartStreamOption {
	return func(h *CartStreamHandler) {
		h.maxClients = max
	}
}

// WithSSEMetrics records the number of connected clients
func WithSSEMetrics(m *telemetry.CheckoutMetrics) CartStreamOption {
	return func(h *CartStreamHandler) {
		h.metrics = m
	}
}

// WithSSEBase applies handler options to the embedded BaseHandler
func WithSSEBase(opts ...Option) CartStreamOption {
	return func(h *CartStreamHandler) {
		h.BaseHandler = newBase(opts)
	}
}

// NewCartStreamHandler creates a new SSE handler for cart count changes
func NewCartStreamHandler(carts *cart.Service, events shared.EventSubscriber, opts ...CartStreamOption) *CartStreamHandler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &CartStreamHandler{
		carts:      carts,
		events:     events,
		logger:     zap.NewNop(),
		ctx:        ctx,
		cancel:     cancel,
		heartbeat:  30 * time.Second,
		maxClients: 10000,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Start begins sending heartbeats to connected clients
func (h *CartStreamHandler) Start() error {
	h.startMu.Lock()
	defer h.startMu.Unlock()

	if h.started {
		return fmt.Errorf("cart stream already started")
	}

	go h.sendHeartbeats()

	h.started = true
	h.logger.Info("Cart stream started", zap.Duration("heartbeat", h.heartbeat))
	return nil
}

// Stop disconnects every client
func (h *CartStreamHandler) Stop() {
	h.cancel()
	h.logger.Info("Cart stream stopped", zap.Int("clients", h.GetClientCount()))
}

// broadcast sends a message to all connected clients
func (h *CartStreamHandler) broadcast(msg SSEMessage) {
	h.clients.Range(func(_, value any) bool {
		if client, ok := value.(*SSEClient); ok && !client.send(msg) {
			h.logger.Debug("Client channel full, dropping message",
				zap.String("client_id", client.ID),
				zap.String("event", msg.Event))
		}
		return true
	})
}

// sendHeartbeats periodically sends heartbeat messages to keep connections alive
func (h *CartStreamHandler) sendHeartbeats() {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.broadcast(SSEMessage{
				Event: SSEEventHeartbeat,
				Data:  fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()),
			})
		}
	}
}

// subscribe forwards count changes of the client's session to it
func (h *CartStreamHandler) subscribe(client *SSEClient) shared.Unsubscribe {
	return storefront.CartCountChangedTopic.Subscribe(h.events,
		func(_ context.Context, event *storefront.CartCountChanged) error {
			if event.SessionKey() != client.SessionKey {
				return nil
			}
			if !client.sendLatest(countMessage(event.NewItemCount, event.EventID().String())) {
				h.logger.Warn("Client channel full, dropping cart count",
					zap.String("client_id", client.ID))
			}
			return nil
		})
}

func countMessage(count int, id string) SSEMessage {
	data, _ := json.Marshal(CartCountEvent{Count: count})
	return SSEMessage{Event: SSEEventCartCount, Data: string(data), ID: id}
}

// Stream sends the current count, then one cart_count event per change
func (h *CartStreamHandler) Stream(c *gin.Context) {
	if h.maxClients > 0 && h.GetClientCount() >= h.maxClients {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeMaxConnections,
			"Maximum number of SSE connections reached")
		return
	}

	sess := currentSession(c)
	client := &SSEClient{
		ID:         uuid.New().String(),
		SessionKey: sess.Key,
		Chan:       make(chan SSEMessage, sseMessageBufferSize),
		Done:       make(chan struct{}),
	}
	reqCtx := c.Request.Context()
	log := logger.GetGinLogger(c).With(zap.String("client_id", client.ID))

	// subscribe before reading the count so no change slips between them
	unsubscribe := h.subscribe(client)
	h.clients.Store(client.ID, client)
	h.metrics.RecordStreamClients(reqCtx, h.GetClientCount())
	defer func() {
		unsubscribe()
		client.closed.Store(true)
		h.clients.Delete(client.ID)
		h.metrics.RecordStreamClients(context.WithoutCancel(reqCtx), h.GetClientCount())
	}()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	log.Info("SSE client connected", zap.String("user_id", middleware.GetUserID(c)))

	h.sendEvent(c.Writer, SSEMessage{
		Event: SSEEventConnected,
		Data:  fmt.Sprintf(`{"client_id":"%s","timestamp":%d}`, client.ID, time.Now().Unix()),
	})
	if count, err := h.carts.Count(reqCtx, sess); err != nil {
		f := storefront.ToFailure(err)
		data, _ := json.Marshal(gin.H{
			"reason":  f.Reason.String(),
			"message": middleware.TranslateFailure(c, f),
		})
		h.sendEvent(c.Writer, SSEMessage{Event: SSEEventCartError, Data: string(data)})
	} else {
		h.sendEvent(c.Writer, countMessage(count, ""))
	}
	c.Writer.Flush()

	for {
		select {
		case <-reqCtx.Done():
			log.Info("SSE client disconnected")
			return
		case <-client.Done:
			log.Info("SSE client disconnected (session ended)")
			return
		case <-h.ctx.Done():
			log.Info("Cart stream stopped, disconnecting client")
			return
		case msg := <-client.Chan:
			h.sendEvent(c.Writer, msg)
			c.Writer.Flush()
		}
	}
}

// sendEvent writes an SSE event to the response writer
func (h *CartStreamHandler) sendEvent(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}

// Disconnect ends every stream of a session. It runs when the session is
// dropped.
func (h *CartStreamHandler) Disconnect(_ context.Context, sessionKey string) {
	h.clients.Range(func(_, value any) bool {
		if client, ok := value.(*SSEClient); ok && client.SessionKey == sessionKey {
			client.disconnect()
		}
		return true
	})
}

// GetClientCount returns the number of connected SSE clients
func (h *CartStreamHandler) GetClientCount() int {
	count := 0
	h.clients.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
