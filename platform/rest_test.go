package platform

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sealtalk/domain"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestClient_ListMessages_BuildsBoundedAscendingQuery(t *testing.T) {
	req := require.New(t)
	since := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/rest/v1/messages", r.URL.Path)
		req.Equal("gte."+since.Format(time.RFC3339Nano), r.URL.Query().Get("created_at"))
		req.Equal("created_at.asc", r.URL.Query().Get("order"))
		req.Equal("anon-key", r.Header.Get("apikey"))
		req.Equal("Bearer access-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"0d9c41f4-7c5a-4df1-9a87-07b0a28b2e10","content":"hi","sender_id":"u1","sender_name":"Eve","created_at":"2025-06-01T13:00:00Z"}
		]`))
	}))
	defer server.Close()

	client := NewClient(logs.GetLoggerFromLevel(slog.LevelDebug), server.URL, "anon-key", "access-token")
	messages, err := client.ListMessages(context.Background(), since)

	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("hi", messages[0].Content)
	req.Equal("u1", messages[0].SenderID)
}

func TestClient_InsertMessage_ReturnsTheStoredRow(t *testing.T) {
	req := require.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal(http.MethodPost, r.Method)
		req.Equal("return=representation", r.Header.Get("Prefer"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[
			{"id":"0d9c41f4-7c5a-4df1-9a87-07b0a28b2e10","content":"sent","sender_id":"u1","sender_name":"Eve","created_at":"2025-06-01T13:00:00Z"}
		]`))
	}))
	defer server.Close()

	client := NewClient(logs.GetLoggerFromLevel(slog.LevelDebug), server.URL, "anon-key", "access-token")
	stored, err := client.InsertMessage(context.Background(), domain.Draft{
		Content: "sent", SenderID: "u1", SenderName: "Eve",
	})

	req.NoError(err)
	req.Equal("sent", stored.Content)
	req.False(stored.CreatedAt.IsZero())
}

func TestClient_ListMessages_NonOKStatus_Fails(t *testing.T) {
	req := require.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(logs.GetLoggerFromLevel(slog.LevelDebug), server.URL, "anon-key", "expired")
	_, err := client.ListMessages(context.Background(), time.Now())

	req.ErrorContains(err, "unexpected status 401")
}
