package platform

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestClient_DailyQuote(t *testing.T) {
	req := require.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/functions/v1/daily-quote", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quote":{"quote":"The sea, once it casts its spell, holds one in its net of wonder forever.","author":"Jacques Cousteau"}}`))
	}))
	defer server.Close()

	client := NewClient(logs.GetLoggerFromLevel(slog.LevelDebug), server.URL, "anon-key", "access-token")
	quote, err := client.DailyQuote(context.Background())

	req.NoError(err)
	req.Equal("Jacques Cousteau", quote.Author)
	req.Contains(quote.Quote, "net of wonder")
}
