package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"estatebid-auction-service/internal/adapters/ws"
	"estatebid-auction-service/internal/config"

	"github.com/rs/zerolog"
)

// Server hosts the HTTP API and the websocket live feed on one listener.
type Server struct {
	httpServer *http.Server
	config     *config.Config
	logger     zerolog.Logger
}

type ServerParams struct {
	Config    *config.Config
	Handler   *Handler
	WsHandler *ws.WsHandler
	Logger    zerolog.Logger
}

func NewServer(params ServerParams) *Server {
	mux := http.NewServeMux()
	params.Handler.Register(mux)
	mux.HandleFunc("GET /ws", params.WsHandler.HandleWebSocket)
	mux.HandleFunc("GET /health", handleHealth)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", params.Config.Server.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Minute,
	}

	return &Server{
		httpServer: httpServer,
		config:     params.Config,
		logger:     params.Logger.With().Str("component", "http_server").Logger(),
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Server.Port).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok", "service": "estatebid-auction-service"}`))
}
