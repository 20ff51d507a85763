package server

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/xhad/tutor/pkg/logger"
	"github.com/xhad/tutor/pkg/rag"
)

type Config struct {
	Host           string
	Port           int
	Mode           string // gin mode: debug, release, test
	AllowedOrigins []string
}

// Server exposes the document-QA core over REST.
type Server struct {
	config Config
	log    *logger.Logger
	svc    *rag.Service
	engine *gin.Engine
}

func New(config Config, svc *rag.Service, log *logger.Logger) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("rag service required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if config.Host == "" {
		config.Host = "0.0.0.0"
	}
	if config.Port == 0 {
		config.Port = 8000
	}
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	s := &Server{
		config: config,
		log:    log.With("service", "HTTP"),
		svc:    svc,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(config.AllowedOrigins) == 1 && config.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = config.AllowedOrigins
	}
	engine.Use(cors.New(corsConfig))

	s.registerRoutes(engine)
	s.engine = engine
	return s, nil
}

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/", s.handleRoot)
	r.GET("/supported-formats", s.handleSupportedFormats)

	r.POST("/upload-book", s.handleUploadBook)
	r.POST("/scrape-url", s.handleScrapeURL)
	r.GET("/books", s.handleListBooks)
	r.DELETE("/book/:book_id", s.handleDeleteBook)

	r.POST("/chat", s.handleChat)
	r.POST("/conversations", s.handleCreateConversation)
	r.GET("/conversations/:book_id", s.handleListConversations)
	r.GET("/conversation-history/:conversation_id", s.handleConversationHistory)
	r.GET("/chat-history/:book_id", s.handleChatHistory)

	r.POST("/generate-mcqs", s.handleGenerateMCQs)
}

// Run blocks serving HTTP until the listener fails.
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.log.Info("listening", "addr", addr)
	return s.engine.Run(addr)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() *gin.Engine {
	return s.engine
}
