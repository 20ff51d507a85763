package records_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/tutor/internal/models"
	"github.com/xhad/tutor/pkg/records"
)

func openStore(t *testing.T) *records.Store {
	t.Helper()
	store, err := records.OpenSQLite(":memory:")
	require.NoError(t, err)
	return store
}

func doc(id, userID string) *models.Document {
	return &models.Document{
		ID:       id,
		UserID:   userID,
		Title:    "Title of " + id,
		Filename: id + ".pdf",
		FileType: "pdf",
		Status:   models.StatusProcessing,
	}
}

func TestDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.InsertDocument(ctx, doc("doc-1", "user-1")))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)

	now := time.Now().UTC()
	err = store.UpdateDocument(ctx, "doc-1", map[string]any{
		"status":         models.StatusProcessed,
		"processed_date": &now,
	})
	require.NoError(t, err)

	got, err = store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessed, got.Status)
	require.NotNil(t, got.ProcessedDate)

	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))
	_, err = store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, records.ErrNotFound)
}

func TestDocumentNotFound(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	_, err := store.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, records.ErrNotFound)

	err = store.UpdateDocument(ctx, "missing", map[string]any{"status": models.StatusFailed})
	assert.ErrorIs(t, err, records.ErrNotFound)

	err = store.DeleteDocument(ctx, "missing")
	assert.ErrorIs(t, err, records.ErrNotFound)
}

func TestListDocuments_ScopedToUser(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.InsertDocument(ctx, doc("doc-1", "user-1")))
	require.NoError(t, store.InsertDocument(ctx, doc("doc-2", "user-1")))
	require.NoError(t, store.InsertDocument(ctx, doc("doc-3", "user-2")))

	docs, err := store.ListDocuments(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	for _, d := range docs {
		assert.Equal(t, "user-1", d.UserID)
	}
}

func TestConversationsAndMessages(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.InsertDocument(ctx, doc("doc-1", "user-1")))

	conv := &models.Conversation{
		ID:         "conv-1",
		DocumentID: "doc-1",
		UserID:     "user-1",
		Title:      "What is this about...",
	}
	require.NoError(t, store.InsertConversation(ctx, conv))

	base := time.Now().UTC().Truncate(time.Second)
	msgs := []models.ChatMessage{
		{
			ID: "msg-1", ConversationID: "conv-1", DocumentID: "doc-1",
			UserID: "user-1", Role: models.RoleUser,
			Content: "What is this about?", CreatedAt: base,
		},
		{
			ID: "msg-2", ConversationID: "conv-1", DocumentID: "doc-1",
			UserID: "user-1", Role: models.RoleAssistant,
			Content: "It covers...", CreatedAt: base.Add(time.Second),
		},
	}
	require.NoError(t, store.InsertMessages(ctx, msgs))

	listed, err := store.ListMessages(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, models.RoleUser, listed[0].Role)
	assert.Equal(t, models.RoleAssistant, listed[1].Role)

	convs, err := store.ListConversations(ctx, "doc-1", "user-1")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, int64(2), convs[0].MessageCount)

	// Wrong owner sees nothing.
	convs, err = store.ListConversations(ctx, "doc-1", "user-2")
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestGetConversation(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.InsertConversation(ctx, &models.Conversation{
		ID: "conv-1", DocumentID: "doc-1", UserID: "user-1", Title: "t",
	}))

	got, err := store.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.DocumentID)
	assert.Equal(t, "user-1", got.UserID)

	_, err = store.GetConversation(ctx, "missing")
	assert.ErrorIs(t, err, records.ErrNotFound)
}

func TestClose(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Close())
}

func TestDeleteDocumentData(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.InsertDocument(ctx, doc("doc-1", "user-1")))
	require.NoError(t, store.InsertConversation(ctx, &models.Conversation{
		ID: "conv-1", DocumentID: "doc-1", UserID: "user-1", Title: "t",
	}))
	require.NoError(t, store.InsertMessages(ctx, []models.ChatMessage{
		{
			ID: "msg-1", ConversationID: "conv-1", DocumentID: "doc-1",
			UserID: "user-1", Role: models.RoleUser, Content: "hi",
		},
	}))

	require.NoError(t, store.DeleteMessages(ctx, "doc-1"))
	require.NoError(t, store.DeleteConversations(ctx, "doc-1"))

	msgs, err := store.ListMessages(ctx, "conv-1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	convs, err := store.ListConversations(ctx, "doc-1", "user-1")
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestTouchConversation(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.InsertConversation(ctx, &models.Conversation{
		ID: "conv-1", DocumentID: "doc-1", UserID: "user-1", Title: "t",
	}))

	later := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, store.TouchConversation(ctx, "conv-1", later))

	convs, err := store.ListConversations(ctx, "doc-1", "user-1")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.WithinDuration(t, later, convs[0].UpdatedAt, time.Second)
}
