package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/tutor/pkg/extract"
	"github.com/xhad/tutor/pkg/logger"
	"github.com/xhad/tutor/pkg/processor"
	"github.com/xhad/tutor/pkg/rag"
	"github.com/xhad/tutor/pkg/records"
	"github.com/xhad/tutor/pkg/store"
	"github.com/xhad/tutor/server"
)

const testDim = 8

type fakeEmbedder struct {
	fail bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	v := make([]float32, testDim)
	for i, b := range []byte(text) {
		v[i%testDim] += float32(b % 32)
	}
	return v, nil
}

func (f *fakeEmbedder) Dimensions() int { return testDim }

type fakeModel struct {
	reply string
}

func (f *fakeModel) Complete(_ context.Context, _ string) (string, error) {
	return f.reply, nil
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	rec, err := records.OpenSQLite(":memory:")
	require.NoError(t, err)

	svc, err := rag.NewService(rag.Config{}, rag.Deps{
		Extractors: extract.NewRegistry(logger.NewNop(), nil, nil),
		Chunker:    processor.NewWithConfig(processor.Config{ChunkSize: 120, ChunkOverlap: 20}),
		Embedder:   &fakeEmbedder{},
		Model:      &fakeModel{reply: "The cell produces energy in the mitochondria."},
		Index:      store.NewMemoryIndex(testDim),
		Records:    rec,
	}, logger.NewNop())
	require.NoError(t, err)

	srv, err := server.New(server.Config{Mode: "test"}, svc, logger.NewNop())
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *server.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func uploadFile(t *testing.T, srv *server.Server, filename, content string) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-book", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthAndFormats(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)

	w = doJSON(t, srv, http.MethodGet, "/supported-formats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ".txt")
	assert.Contains(t, w.Body.String(), ".pdf")
}

func TestUploadListDelete(t *testing.T) {
	srv := newTestServer(t)
	content := strings.Repeat("The mitochondria is the powerhouse of the cell. ", 12)

	resp := uploadFile(t, srv, "biology-notes.txt", content)
	assert.Equal(t, "processed", resp["status"])
	assert.Equal(t, "biology-notes", resp["title"])
	bookID, _ := resp["book_id"].(string)
	require.NotEmpty(t, bookID)

	w := doJSON(t, srv, http.MethodGet, "/books", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), bookID)

	w = doJSON(t, srv, http.MethodDelete, "/book/"+bookID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/books", nil)
	assert.NotContains(t, w.Body.String(), bookID)
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "archive.tar.gz")
	require.NoError(t, err)
	_, err = fw.Write([]byte("binary"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-book", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported")
}

func TestUploadMissingFile(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/upload-book", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatFlow(t *testing.T) {
	srv := newTestServer(t)
	content := strings.Repeat("The mitochondria is the powerhouse of the cell. ", 12)
	resp := uploadFile(t, srv, "biology-notes.txt", content)
	bookID := resp["book_id"].(string)

	w := doJSON(t, srv, http.MethodPost, "/chat", map[string]any{
		"book_id": bookID,
		"message": "What does the mitochondria do?",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var chat struct {
		Response       string `json:"response"`
		DocumentID     string `json:"document_id"`
		ConversationID string `json:"conversation_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &chat))
	assert.Equal(t, bookID, chat.DocumentID)
	assert.NotEmpty(t, chat.ConversationID)
	assert.Contains(t, chat.Response, "mitochondria")

	// Both turn messages are visible through the history endpoints.
	w = doJSON(t, srv, http.MethodGet, "/conversation-history/"+chat.ConversationID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user"`)
	assert.Contains(t, w.Body.String(), `"assistant"`)

	w = doJSON(t, srv, http.MethodGet, "/chat-history/"+bookID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "What does the mitochondria do?")

	w = doJSON(t, srv, http.MethodGet, "/conversations/"+bookID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), chat.ConversationID)
}

func TestCreateConversationThenChat(t *testing.T) {
	srv := newTestServer(t)
	content := strings.Repeat("The mitochondria is the powerhouse of the cell. ", 12)
	resp := uploadFile(t, srv, "biology-notes.txt", content)
	bookID := resp["book_id"].(string)

	w := doJSON(t, srv, http.MethodPost, "/conversations", map[string]any{
		"book_id": bookID,
		"title":   "Study session",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var conv struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	assert.Equal(t, "Study session", conv.Title)
	require.NotEmpty(t, conv.ID)

	// Chatting with the pre-created id reuses it instead of opening a
	// new conversation.
	w = doJSON(t, srv, http.MethodPost, "/chat", map[string]any{
		"book_id":         bookID,
		"message":         "Where is energy produced?",
		"conversation_id": conv.ID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), conv.ID)
}

func TestChatValidation(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/chat", map[string]any{"message": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/chat", map[string]any{
		"book_id": "does-not-exist",
		"message": "hi",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConversationHistoryScopedToOwner(t *testing.T) {
	srv := newTestServer(t)
	content := strings.Repeat("The mitochondria is the powerhouse of the cell. ", 12)
	resp := uploadFile(t, srv, "biology-notes.txt", content)
	bookID := resp["book_id"].(string)

	w := doJSON(t, srv, http.MethodPost, "/chat", map[string]any{
		"book_id": bookID,
		"message": "What does the mitochondria do?",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var chat struct {
		ConversationID string `json:"conversation_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &chat))

	// Another user cannot read the conversation or chat into it.
	w = doJSON(t, srv, http.MethodGet, "/conversation-history/"+chat.ConversationID+"?user_id=someone-else", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/conversation-history/unknown-conversation", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatRejectsForeignDocument(t *testing.T) {
	srv := newTestServer(t)
	content := strings.Repeat("The mitochondria is the powerhouse of the cell. ", 12)
	resp := uploadFile(t, srv, "biology-notes.txt", content)
	bookID := resp["book_id"].(string)

	w := doJSON(t, srv, http.MethodPost, "/chat", map[string]any{
		"book_id": bookID,
		"message": "hi",
		"user_id": "someone-else",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGenerateMCQs(t *testing.T) {
	srv := newTestServer(t)
	content := strings.Repeat("The mitochondria is the powerhouse of the cell. ", 12)
	resp := uploadFile(t, srv, "biology-notes.txt", content)
	bookID := resp["book_id"].(string)

	// The fake model never returns JSON, so the deterministic fallback
	// set is served with the requested count.
	w := doJSON(t, srv, http.MethodPost, "/generate-mcqs", map[string]any{
		"book_id":       bookID,
		"num_questions": 3,
		"difficulty":    "easy",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var quiz struct {
		Questions []struct {
			ID      int      `json:"id"`
			Options []string `json:"options"`
		} `json:"questions"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quiz))
	assert.Equal(t, 3, quiz.Count)
	require.Len(t, quiz.Questions, 3)
	for i, q := range quiz.Questions {
		assert.Equal(t, i+1, q.ID)
		assert.Len(t, q.Options, 4)
	}
}

func TestScrapeURLWithoutWebExtractor(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/scrape-url", map[string]any{
		"url": "https://example.com/article",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
