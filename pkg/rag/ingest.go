package rag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xhad/tutor/internal/models"
	"github.com/xhad/tutor/pkg/apperr"
	"github.com/xhad/tutor/pkg/detect"
	"github.com/xhad/tutor/pkg/extract"
	"github.com/xhad/tutor/pkg/records"
)

// ProcessDocument runs the full ingestion pipeline for an uploaded
// file: extract, chunk, embed, index, then flip the document status.
// The status only becomes "processed" after every vector is written.
func (s *Service) ProcessDocument(ctx context.Context, userID, filename string, content []byte, title string) (*models.Document, error) {
	if len(content) == 0 {
		return nil, apperr.EmptyContent(fmt.Errorf("empty upload %q", filename))
	}
	if !detect.IsSupported(filename) {
		return nil, apperr.UnsupportedFormat(fmt.Errorf("unsupported file type %q", filepath.Ext(filename)))
	}

	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	id := uuid.NewString()
	doc := &models.Document{
		ID:         id,
		UserID:     userID,
		Title:      title,
		Filename:   filename,
		FileSize:   int64(len(content)),
		FileType:   string(detect.Detect(filename, content)),
		Status:     models.StatusProcessing,
		Namespace:  namespaceFor(title, id),
		UploadDate: time.Now().UTC(),
	}
	if err := s.deps.Records.InsertDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	s.log.Info("processing document", "document_id", doc.ID, "filename", filename, "bytes", len(content))

	text, meta, err := s.deps.Extractors.Extract(ctx, content, filename)
	if err != nil {
		s.markFailed(ctx, doc.ID)
		return nil, apperr.ExtractionFailure(err)
	}
	if strings.TrimSpace(text) == "" {
		s.markFailed(ctx, doc.ID)
		return nil, apperr.EmptyContent(fmt.Errorf("no usable text in %q", filename))
	}

	fields := map[string]any{}
	if details, ok := meta["format_details"].(string); ok {
		fields["format_details"] = details
	}
	if pages, ok := meta["page_count"].(int); ok {
		fields["page_count"] = pages
	}

	if err := s.indexText(ctx, doc, text); err != nil {
		s.markFailed(ctx, doc.ID)
		return nil, err
	}

	now := time.Now().UTC()
	fields["status"] = models.StatusProcessed
	fields["processed_date"] = &now
	if err := s.deps.Records.UpdateDocument(ctx, doc.ID, fields); err != nil {
		return nil, fmt.Errorf("finalize document: %w", err)
	}

	return s.deps.Records.GetDocument(ctx, doc.ID)
}

// ProcessURL ingests a remote page through the web extraction service
// and indexes it like an uploaded document.
func (s *Service) ProcessURL(ctx context.Context, userID, url, title string) (*models.Document, error) {
	if s.deps.Web == nil {
		return nil, apperr.ExtractionFailure(fmt.Errorf("web extraction: %w", extract.ErrCapabilityUnavailable))
	}

	page, err := s.deps.Web.ExtractPage(ctx, url)
	if err != nil {
		return nil, apperr.ExtractionFailure(fmt.Errorf("extract %s: %w", url, err))
	}

	if title == "" {
		title = page.Title
	}

	id := uuid.NewString()
	doc := &models.Document{
		ID:            id,
		UserID:        userID,
		Title:         title,
		Filename:      url,
		SourceURL:     page.SourceURL,
		FileSize:      int64(len(page.Content)),
		FileType:      string(detect.Web),
		FormatDetails: "Web Page",
		Status:        models.StatusProcessing,
		Namespace:     namespaceFor(title, id),
		UploadDate:    time.Now().UTC(),
	}
	if err := s.deps.Records.InsertDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	s.log.Info("processing url", "document_id", doc.ID, "url", url, "chars", len(page.Content))

	if err := s.indexText(ctx, doc, page.Content); err != nil {
		s.markFailed(ctx, doc.ID)
		return nil, err
	}

	now := time.Now().UTC()
	err = s.deps.Records.UpdateDocument(ctx, doc.ID, map[string]any{
		"status":         models.StatusProcessed,
		"processed_date": &now,
	})
	if err != nil {
		return nil, fmt.Errorf("finalize document: %w", err)
	}

	return s.deps.Records.GetDocument(ctx, doc.ID)
}

// indexText chunks, embeds and upserts in one sequential pass. The
// record IDs are deterministic, so re-running overwrites rather than
// duplicates.
func (s *Service) indexText(ctx context.Context, doc *models.Document, text string) error {
	chunks := s.deps.Chunker.ChunkDocument(doc, text)
	if len(chunks) == 0 {
		return apperr.EmptyContent(fmt.Errorf("document %s produced no chunks", doc.ID))
	}

	vectorRecords := make([]models.VectorRecord, 0, len(chunks))
	for _, chunk := range chunks {
		values, err := s.deps.Embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return apperr.IndexingFailure(fmt.Errorf("embed chunk %d: %w", chunk.Index, err))
		}
		vectorRecords = append(vectorRecords, models.VectorRecord{
			ID:     fmt.Sprintf("%s_%d", doc.ID, chunk.Index),
			Values: values,
			Chunk:  chunk,
		})
	}

	if err := s.deps.Index.Upsert(ctx, doc.Namespace, vectorRecords); err != nil {
		return apperr.IndexingFailure(fmt.Errorf("upsert %d vectors: %w", len(vectorRecords), err))
	}

	s.log.Info("document indexed", "document_id", doc.ID, "namespace", doc.Namespace, "chunks", len(chunks))
	return nil
}

func (s *Service) markFailed(ctx context.Context, documentID string) {
	err := s.deps.Records.UpdateDocument(ctx, documentID, map[string]any{
		"status": models.StatusFailed,
	})
	if err != nil {
		s.log.Error("could not mark document failed", "document_id", documentID, "error", err)
	}
}

// DeleteDocument removes the document's vectors, conversations,
// messages and record. Only the owner may delete.
func (s *Service) DeleteDocument(ctx context.Context, userID, documentID string) error {
	doc, err := s.authorizedDocument(ctx, userID, documentID)
	if err != nil {
		return err
	}

	if err := s.deps.Index.Delete(ctx, doc.Namespace); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	if err := s.deps.Records.DeleteMessages(ctx, documentID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if err := s.deps.Records.DeleteConversations(ctx, documentID); err != nil {
		return fmt.Errorf("delete conversations: %w", err)
	}
	if err := s.deps.Records.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	s.log.Info("document deleted", "document_id", documentID, "namespace", doc.Namespace)
	return nil
}

// Documents lists the caller's documents, newest first.
func (s *Service) Documents(ctx context.Context, userID string) ([]models.Document, error) {
	return s.deps.Records.ListDocuments(ctx, userID)
}

// Document fetches one document after an ownership check.
func (s *Service) Document(ctx context.Context, userID, documentID string) (*models.Document, error) {
	return s.authorizedDocument(ctx, userID, documentID)
}

func (s *Service) authorizedDocument(ctx context.Context, userID, documentID string) (*models.Document, error) {
	doc, err := s.deps.Records.GetDocument(ctx, documentID)
	if errors.Is(err, records.ErrNotFound) {
		return nil, apperr.NotFound(fmt.Errorf("document %s", documentID))
	}
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		return nil, apperr.Unauthorized(fmt.Errorf("document %s does not belong to caller", documentID))
	}
	return doc, nil
}
