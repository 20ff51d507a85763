package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xhad/tutor/pkg/apperr"
	"github.com/xhad/tutor/pkg/detect"
)

// defaultUserID is used when the caller does not identify itself. There
// is no authentication layer; user IDs only scope ownership.
const defaultUserID = "demo_user"

const maxUploadBytes = 100 << 20

func (s *Server) abortError(c *gin.Context, err error) {
	status := apperr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func userIDFrom(c *gin.Context) string {
	if id := c.Query("user_id"); id != "" {
		return id
	}
	if id := c.PostForm("user_id"); id != "" {
		return id
	}
	return defaultUserID
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "tutor"})
}

func (s *Server) handleSupportedFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"supported_formats": detect.SupportedExtensions()})
}

func (s *Server) handleUploadBook(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		s.abortError(c, apperr.New(http.StatusBadRequest, apperr.CodeEmptyContent,
			fmt.Errorf("missing file field: %w", err)))
		return
	}
	if fileHeader.Size > maxUploadBytes {
		s.abortError(c, apperr.New(http.StatusRequestEntityTooLarge, apperr.CodeUnsupportedFormat,
			fmt.Errorf("file exceeds %d bytes", maxUploadBytes)))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		s.abortError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.abortError(c, fmt.Errorf("read upload: %w", err))
		return
	}

	doc, err := s.svc.ProcessDocument(c.Request.Context(),
		userIDFrom(c), fileHeader.Filename, content, c.PostForm("book_name"))
	if err != nil {
		s.abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"book_id":  doc.ID,
		"title":    doc.Title,
		"status":   doc.Status,
		"document": doc,
	})
}

func (s *Server) handleScrapeURL(c *gin.Context) {
	var req struct {
		URL    string `json:"url" binding:"required"`
		Title  string `json:"title"`
		UserID string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortError(c, apperr.New(http.StatusBadRequest, apperr.CodeEmptyContent, err))
		return
	}
	if req.UserID == "" {
		req.UserID = defaultUserID
	}

	doc, err := s.svc.ProcessURL(c.Request.Context(), req.UserID, req.URL, req.Title)
	if err != nil {
		s.abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"book_id":  doc.ID,
		"title":    doc.Title,
		"status":   doc.Status,
		"document": doc,
	})
}

func (s *Server) handleListBooks(c *gin.Context) {
	docs, err := s.svc.Documents(c.Request.Context(), userIDFrom(c))
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": docs})
}

func (s *Server) handleDeleteBook(c *gin.Context) {
	documentID := c.Param("book_id")
	if err := s.svc.DeleteDocument(c.Request.Context(), userIDFrom(c), documentID); err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "document deleted", "book_id": documentID})
}

func (s *Server) handleChat(c *gin.Context) {
	var req struct {
		BookID         string `json:"book_id" binding:"required"`
		Message        string `json:"message" binding:"required"`
		ConversationID string `json:"conversation_id"`
		UserID         string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortError(c, apperr.New(http.StatusBadRequest, apperr.CodeEmptyContent, err))
		return
	}
	if req.UserID == "" {
		req.UserID = defaultUserID
	}

	result, err := s.svc.Chat(c.Request.Context(), req.UserID, req.BookID, req.ConversationID, req.Message)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCreateConversation(c *gin.Context) {
	var req struct {
		BookID string `json:"book_id" binding:"required"`
		Title  string `json:"title"`
		UserID string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortError(c, apperr.New(http.StatusBadRequest, apperr.CodeEmptyContent, err))
		return
	}
	if req.UserID == "" {
		req.UserID = defaultUserID
	}

	conv, err := s.svc.NewConversation(c.Request.Context(), req.UserID, req.BookID, req.Title)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) handleListConversations(c *gin.Context) {
	convs, err := s.svc.Conversations(c.Request.Context(), userIDFrom(c), c.Param("book_id"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

func (s *Server) handleConversationHistory(c *gin.Context) {
	msgs, err := s.svc.ConversationHistory(c.Request.Context(), userIDFrom(c), c.Param("conversation_id"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (s *Server) handleChatHistory(c *gin.Context) {
	msgs, err := s.svc.DocumentHistory(c.Request.Context(), userIDFrom(c), c.Param("book_id"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (s *Server) handleGenerateMCQs(c *gin.Context) {
	var req struct {
		BookID       string `json:"book_id" binding:"required"`
		NumQuestions int    `json:"num_questions"`
		Difficulty   string `json:"difficulty"`
		UserID       string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortError(c, apperr.New(http.StatusBadRequest, apperr.CodeEmptyContent, err))
		return
	}
	if req.UserID == "" {
		req.UserID = defaultUserID
	}

	mcqs, err := s.svc.GenerateQuiz(c.Request.Context(), req.UserID, req.BookID, req.NumQuestions, req.Difficulty)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": mcqs, "count": len(mcqs)})
}
