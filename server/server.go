package server

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/Desarso/tripwise/models"
	"github.com/Desarso/tripwise/sessions"
	"github.com/Desarso/tripwise/stores"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	RequestIDHeader = "X-Request-ID"

	defaultListLimit = 50
	maxListLimit     = 500
)

// Server exposes the chat orchestrator over HTTP.
type Server struct {
	Chat        *sessions.ChatSession
	Store       stores.ExchangeStore // Optional: nil disables the exchange endpoints
	MockScoring bool
	Logger      *log.Logger
	Upgrader    websocket.Upgrader
}

// New builds a Server. allowedOrigins lists the origins that may open the
// chat websocket; empty keeps the same-origin check and "*" allows any.
func New(chat *sessions.ChatSession, store stores.ExchangeStore, mockScoring bool, allowedOrigins []string) *Server {
	return &Server{
		Chat:        chat,
		Store:       store,
		MockScoring: mockScoring,
		Logger:      log.New(os.Stdout, "[server] ", log.LstdFlags),
		Upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

// originChecker returns nil for an empty list so the upgrader falls back to
// its same-origin check.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(r *http.Request) bool { return true }
		}
		set[strings.TrimSuffix(origin, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), requestID())

	router.GET("/healthz", s.health)

	api := router.Group("/api")
	api.POST("/chat", s.chat)
	api.GET("/chat/ws", s.chatWebSocket)
	api.GET("/exchanges", s.listExchanges)
	api.GET("/exchanges/:id", s.getExchange)

	return router
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.Chat.Run(c.Request.Context(), *req.Message)
	if err != nil {
		status, message := sessions.ErrorStatus(err)
		s.Logger.Printf("Chat request %s failed (%d): %v", c.GetString("request_id"), status, err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) chatWebSocket(c *gin.Context) {
	conn, err := s.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session := sessions.NewWebSocketSession(c.GetString("request_id"), conn, s.Chat)
	if err := session.Serve(c.Request.Context()); err != nil {
		s.Logger.Printf("WebSocket session ended with error: %v", err)
	}
}

func (s *Server) listExchanges(c *gin.Context) {
	if s.Store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "exchange log is disabled"})
		return
	}

	limit, err := queryInt(c, "limit", defaultListLimit)
	if err != nil || limit < 1 || limit > maxListLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return
	}

	exchanges, err := s.Store.ListExchanges(c.Request.Context(), limit, offset)
	if err != nil {
		s.Logger.Printf("Error listing exchanges: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list exchanges"})
		return
	}

	records := make([]stores.ExchangeRecord, len(exchanges))
	for i, e := range exchanges {
		records[i] = e.Record()
	}
	c.JSON(http.StatusOK, gin.H{"exchanges": records})
}

func (s *Server) getExchange(c *gin.Context) {
	if s.Store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "exchange log is disabled"})
		return
	}

	exchange, err := s.Store.GetExchange(c.Request.Context(), c.Param("id"))
	if errors.Is(err, stores.ErrExchangeNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.Logger.Printf("Error fetching exchange: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch exchange"})
		return
	}

	c.JSON(http.StatusOK, exchange.Record())
}

func (s *Server) health(c *gin.Context) {
	scoring := "remote"
	if s.MockScoring {
		scoring = "mock"
	}

	storeStatus := "disabled"
	status := http.StatusOK
	if s.Store != nil {
		if err := s.Store.Ping(); err != nil {
			s.Logger.Printf("Store ping failed: %v", err)
			storeStatus = "error"
			status = http.StatusServiceUnavailable
		} else {
			storeStatus = "ok"
		}
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "scoring": scoring, "store": storeStatus})
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
