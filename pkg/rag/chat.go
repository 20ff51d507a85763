package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xhad/tutor/internal/models"
	"github.com/xhad/tutor/pkg/apperr"
	"github.com/xhad/tutor/pkg/records"
)

// ChatResult is one completed chat turn.
type ChatResult struct {
	Response       string `json:"response"`
	DocumentID     string `json:"document_id"`
	ConversationID string `json:"conversation_id"`
}

const chatPromptTemplate = `You are an AI tutor helping a student understand the document "%s".
Based on the following context from the document, answer the student's question clearly and helpfully.

Document Context:
%s

%sStudent Question: %s

Instructions:
- Answer based on the provided context from the document
- Be educational and clear
- If the context doesn't contain relevant information, say so
- Cite specific parts of the text when relevant
- Keep responses focused and helpful

Answer:`

// Chat answers one question against a document's indexed content. A
// turn always persists a user+assistant message pair, even when
// retrieval or the model fails and the reply degrades.
func (s *Service) Chat(ctx context.Context, userID, documentID, conversationID, message string) (*ChatResult, error) {
	doc, err := s.authorizedDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	var history []models.ChatMessage
	if conversationID == "" {
		conversationID, err = s.createConversation(ctx, doc, userID, message)
		if err != nil {
			return nil, err
		}
	} else {
		// A supplied conversation id must belong to this caller and
		// this document before any history is read or written.
		conv, err := s.authorizedConversation(ctx, userID, conversationID)
		if err != nil {
			return nil, err
		}
		if conv.DocumentID != doc.ID {
			return nil, apperr.Unauthorized(fmt.Errorf("conversation %s does not belong to document %s", conversationID, doc.ID))
		}

		history, err = s.deps.Records.ListMessages(ctx, conversationID)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		if len(history) > s.config.HistoryMessages {
			history = history[len(history)-s.config.HistoryMessages:]
		}
	}

	reply := s.answer(ctx, doc, history, message)

	if err := s.persistTurn(ctx, conversationID, doc.ID, userID, message, reply); err != nil {
		return nil, err
	}

	return &ChatResult{
		Response:       reply,
		DocumentID:     doc.ID,
		ConversationID: conversationID,
	}, nil
}

// answer runs embed → retrieve → complete. Every failure path returns
// a user-visible degraded reply instead of an error.
func (s *Service) answer(ctx context.Context, doc *models.Document, history []models.ChatMessage, message string) string {
	vector, err := s.deps.Embedder.Embed(ctx, message)
	if err != nil {
		s.log.Error("question embedding failed", "document_id", doc.ID, "error", err)
		return degradedReply(doc.Title)
	}

	matches, err := s.deps.Index.Query(ctx, doc.Namespace, vector, s.config.TopK)
	if err != nil {
		s.log.Error("retrieval failed", "document_id", doc.ID, "error", err)
		return degradedReply(doc.Title)
	}

	if len(matches) == 0 {
		return fmt.Sprintf(
			"I couldn't find specific information about '%s' in the document '%s'. Could you try rephrasing your question or asking about a different topic from the document?",
			message, doc.Title)
	}

	contextChunks := make([]string, 0, s.config.ContextChunks)
	for _, m := range matches {
		if len(contextChunks) == s.config.ContextChunks {
			break
		}
		if text := strings.TrimSpace(m.Chunk.Text); text != "" {
			contextChunks = append(contextChunks, text)
		}
	}

	var historyBlock string
	if len(history) > 0 {
		var hb strings.Builder
		hb.WriteString("Chat History:\n")
		for _, msg := range history {
			fmt.Fprintf(&hb, "%s: %s\n", msg.Role, msg.Content)
		}
		hb.WriteString("\n")
		historyBlock = hb.String()
	}

	prompt := fmt.Sprintf(chatPromptTemplate,
		doc.Title,
		strings.Join(contextChunks, "\n\n"),
		historyBlock,
		message)

	reply, err := s.deps.Model.Complete(ctx, prompt)
	if err != nil {
		s.log.Error("completion failed", "document_id", doc.ID, "error", err)
		return degradedReply(doc.Title)
	}

	s.log.Info("grounded answer generated", "document_id", doc.ID, "chunks", len(contextChunks))
	return reply
}

func degradedReply(title string) string {
	return fmt.Sprintf(
		"I apologize, but I ran into a problem while answering your question about '%s'. Please try again in a moment.",
		title)
}

func (s *Service) createConversation(ctx context.Context, doc *models.Document, userID, message string) (string, error) {
	title := message
	if runes := []rune(title); len(runes) > 40 {
		title = string(runes[:40]) + "..."
	}

	conv := &models.Conversation{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		UserID:     userID,
		Title:      title,
	}
	if err := s.deps.Records.InsertConversation(ctx, conv); err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	return conv.ID, nil
}

// persistTurn writes the user and assistant messages as one batch and
// bumps the conversation's activity timestamp.
func (s *Service) persistTurn(ctx context.Context, conversationID, documentID, userID, message, reply string) error {
	now := time.Now().UTC()
	msgs := []models.ChatMessage{
		{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			DocumentID:     documentID,
			UserID:         userID,
			Role:           models.RoleUser,
			Content:        message,
			CreatedAt:      now,
		},
		{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			DocumentID:     documentID,
			UserID:         userID,
			Role:           models.RoleAssistant,
			Content:        reply,
			CreatedAt:      now.Add(time.Millisecond),
		},
	}
	if err := s.deps.Records.InsertMessages(ctx, msgs); err != nil {
		return fmt.Errorf("persist chat turn: %w", err)
	}
	if err := s.deps.Records.TouchConversation(ctx, conversationID, now); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// NewConversation creates an empty conversation for a document, for
// clients that want the id before the first message.
func (s *Service) NewConversation(ctx context.Context, userID, documentID, title string) (*models.Conversation, error) {
	doc, err := s.authorizedDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(title) == "" {
		title = "New Conversation"
	}
	conv := &models.Conversation{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		UserID:     userID,
		Title:      title,
	}
	if err := s.deps.Records.InsertConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// Conversations lists a document's conversations for its owner.
func (s *Service) Conversations(ctx context.Context, userID, documentID string) ([]models.Conversation, error) {
	if _, err := s.authorizedDocument(ctx, userID, documentID); err != nil {
		return nil, err
	}
	return s.deps.Records.ListConversations(ctx, documentID, userID)
}

// ConversationHistory returns a conversation's messages in order,
// after verifying the caller owns the conversation.
func (s *Service) ConversationHistory(ctx context.Context, userID, conversationID string) ([]models.ChatMessage, error) {
	if _, err := s.authorizedConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.deps.Records.ListMessages(ctx, conversationID)
}

func (s *Service) authorizedConversation(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	conv, err := s.deps.Records.GetConversation(ctx, conversationID)
	if errors.Is(err, records.ErrNotFound) {
		return nil, apperr.NotFound(fmt.Errorf("conversation %s", conversationID))
	}
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, apperr.Unauthorized(fmt.Errorf("conversation %s does not belong to caller", conversationID))
	}
	return conv, nil
}

// DocumentHistory returns every chat message for a document and owner,
// across conversations, oldest first.
func (s *Service) DocumentHistory(ctx context.Context, userID, documentID string) ([]models.ChatMessage, error) {
	if _, err := s.authorizedDocument(ctx, userID, documentID); err != nil {
		return nil, err
	}
	return s.deps.Records.ListDocumentMessages(ctx, documentID, userID)
}
