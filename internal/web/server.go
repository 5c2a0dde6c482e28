package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Server holds the HTTP server and its handlers.
type Server struct {
	mux            *http.ServeMux
	chatHandler    *ChatHandler
	scraperHandler *ScraperHandler
	health         *HealthHandler
	port           int
}

// NewServer wires all routes.
func NewServer(chat *ChatHandler, scraper *ScraperHandler, health *HealthHandler, port int) *Server {
	s := &Server{
		mux:            http.NewServeMux(),
		chatHandler:    chat,
		scraperHandler: scraper,
		health:         health,
		port:           port,
	}
	s.registerRoutes()
	return s
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/v1/chat/message", s.chatHandler.HandleMessage)
	s.mux.HandleFunc("POST /api/v1/chat/topic", s.chatHandler.HandleTopic)
	s.mux.HandleFunc("GET /api/v1/chat/context/preview", s.chatHandler.HandlePreview)
	s.mux.HandleFunc("POST /api/v1/chat/context/clear", s.chatHandler.HandleClearContext)
	s.mux.HandleFunc("POST /api/v1/chat/context/{id}", s.chatHandler.HandleAttachContext)
	s.mux.HandleFunc("DELETE /api/v1/chat/context", s.chatHandler.HandleRemoveContext)
	s.mux.HandleFunc("DELETE /api/v1/chat/conversation/{id}", s.chatHandler.HandleResetConversation)

	s.mux.HandleFunc("POST /api/v1/scraper/url", s.scraperHandler.HandleScrape)
	s.mux.HandleFunc("GET /api/v1/scraper/content/{id}", s.scraperHandler.HandleContent)
	s.mux.HandleFunc("DELETE /api/v1/scraper/content/{id}", s.scraperHandler.HandleDelete)
	s.mux.HandleFunc("GET /api/v1/scraper/conversation/{id}", s.scraperHandler.HandleConversation)

	s.mux.Handle("GET /api/health", s.health)
}

// Start begins listening with graceful shutdown. On SIGINT/SIGTERM it waits
// up to 10s for in-flight requests, so deferred cleanup (registry.Close)
// runs reliably.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	srv := &http.Server{Addr: addr, Handler: s.mux}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Printf("[Web] Received signal %v, shutting down gracefully...", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Web] Graceful shutdown error: %v", err)
		}
	}()

	log.Printf("[Web] Courtside API listening at http://localhost%s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		log.Println("[Web] Server stopped gracefully")
		return nil
	}
	return err
}
