package platform

import (
	"log/slog"
	"testing"

	"sealtalk/domain/event"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestDecodeChange_Insert_CarriesTheNewRow(t *testing.T) {
	req := require.New(t)

	raw, ok := decodeChange([]byte(`{
		"data": {
			"type": "INSERT",
			"record": {"id": "abc", "content": "hello"}
		}
	}`))

	req.True(ok)
	req.Equal(event.OpInsert, raw.Op)
	req.JSONEq(`{"id": "abc", "content": "hello"}`, string(raw.Record))
}

func TestDecodeChange_Delete_CarriesTheOldRow(t *testing.T) {
	req := require.New(t)

	raw, ok := decodeChange([]byte(`{
		"data": {
			"type": "DELETE",
			"old_record": {"id": "abc"}
		}
	}`))

	req.True(ok)
	req.Equal(event.OpDelete, raw.Op)
	req.JSONEq(`{"id": "abc"}`, string(raw.Record))
}

func TestDecodeChange_UpdateAndGarbage_AreSkipped(t *testing.T) {
	req := require.New(t)

	_, ok := decodeChange([]byte(`{"data": {"type": "UPDATE", "record": {}}}`))
	req.False(ok)

	_, ok = decodeChange([]byte(`not json`))
	req.False(ok)
}

func TestRealtime_JoinFrameTargetsTheTableTopic(t *testing.T) {
	req := require.New(t)
	r := NewRealtime(logs.GetLoggerFromLevel(slog.LevelDebug),
		"https://example.supabase.co/", "anon-key", "access-token", "messages")

	req.Equal("realtime:public:messages", r.topic())
	req.Equal("wss://example.supabase.co/realtime/v1/websocket?apikey=anon-key&vsn=1.0.0", r.socketURL())
}
