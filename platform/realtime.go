package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"sealtalk/contract"
	"sealtalk/domain/event"

	"github.com/gorilla/websocket"
)

const (
	heartbeatInterval = 25 * time.Second
	reconnectMin      = 1 * time.Second
	reconnectMax      = 30 * time.Second
)

// Realtime subscribes to row-level change notifications over a websocket
// speaking the platform's phoenix-style protocol: one join push per topic,
// periodic heartbeats, and `postgres_changes` frames for the table.
//
// On a read failure it reconnects with exponential backoff and re-joins,
// then invokes the subscriber's reset callback. Missed changes are never
// replayed here; the subscriber resyncs through the REST surface.
type Realtime struct {
	log     *slog.Logger
	baseURL string
	anonKey string
	token   string
	table   string
	dialer  *websocket.Dialer
}

func NewRealtime(log *slog.Logger, baseURL, anonKey, accessToken, table string) *Realtime {
	return &Realtime{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		token:   accessToken,
		table:   table,
		dialer:  websocket.DefaultDialer,
	}
}

// phxFrame is one message on the socket, both directions.
type phxFrame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

type changePayload struct {
	Data struct {
		Type   string          `json:"type"`
		Record json.RawMessage `json:"record"`
		Old    json.RawMessage `json:"old_record"`
	} `json:"data"`
}

type subscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (s *subscription) Unsubscribe() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe dials, joins the table topic, and starts delivering raw changes
// in arrival order. The initial connection failure is surfaced; later
// failures are retried internally.
func (r *Realtime) Subscribe(ctx context.Context, deliver func(event.RawChange), reset func()) (contract.ISubscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	conn, err := r.connect(subCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	go r.readLoop(subCtx, conn, deliver, reset)
	return &subscription{cancel: cancel}, nil
}

// connect dials the socket and pushes the join frame for the table topic.
func (r *Realtime) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := r.dialer.DialContext(ctx, r.socketURL(), nil)
	if err != nil {
		return nil, err
	}

	joinPayload, err := json.Marshal(map[string]any{
		"config": map[string]any{
			"postgres_changes": []map[string]string{
				{"event": "*", "schema": "public", "table": r.table},
			},
		},
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	join := phxFrame{
		Topic:   r.topic(),
		Event:   "phx_join",
		Payload: joinPayload,
		Ref:     "1",
	}
	if err := conn.WriteJSON(join); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("joining %s: %w", r.topic(), err)
	}
	return conn, nil
}

// readLoop owns the connection for the whole subscription: read frames,
// keep the heartbeat alive, reconnect on failure.
func (r *Realtime) readLoop(ctx context.Context, conn *websocket.Conn, deliver func(event.RawChange), reset func()) {
	for {
		connCtx, connCancel := context.WithCancel(ctx)
		go r.heartbeat(connCtx, conn)

		r.readFrames(ctx, conn, deliver)

		connCancel()
		_ = conn.Close()

		if ctx.Err() != nil {
			r.log.Debug("Subscription closed", "topic", r.topic())
			return
		}

		next := r.reconnect(ctx)
		if next == nil {
			return
		}
		conn = next
		r.log.Info("Change stream re-established", "topic", r.topic())
		reset()
	}
}

func (r *Realtime) readFrames(ctx context.Context, conn *websocket.Conn, deliver func(event.RawChange)) {
	for {
		var frame phxFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() == nil {
				r.log.Warn("Change stream read failed", "error", err)
			}
			return
		}
		if frame.Event != "postgres_changes" {
			continue
		}
		raw, ok := decodeChange(frame.Payload)
		if !ok {
			r.log.Debug("Ignoring unhandled change frame")
			continue
		}
		deliver(raw)
	}
}

// decodeChange maps a postgres_changes payload to a raw change. Inserts
// carry the new row, deletes the old one. Unknown types are skipped.
func decodeChange(payload []byte) (event.RawChange, bool) {
	var p changePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return event.RawChange{}, false
	}
	switch p.Data.Type {
	case "INSERT":
		return event.RawChange{Op: event.OpInsert, Record: p.Data.Record}, true
	case "DELETE":
		return event.RawChange{Op: event.OpDelete, Record: p.Data.Old}, true
	default:
		return event.RawChange{}, false
	}
}

// heartbeat keeps the socket alive for one connection. The join frame is
// written before this starts, so the heartbeat is the only writer.
func (r *Realtime) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ref := 2
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			beat := phxFrame{
				Topic:   "phoenix",
				Event:   "heartbeat",
				Payload: json.RawMessage("{}"),
				Ref:     strconv.Itoa(ref),
			}
			if err := conn.WriteJSON(beat); err != nil {
				r.log.Debug("Heartbeat write failed", "error", err)
				return
			}
			ref++
		}
	}
}

func (r *Realtime) reconnect(ctx context.Context) *websocket.Conn {
	delay := reconnectMin
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, err := r.connect(ctx)
		if err == nil {
			return conn
		}

		r.log.Warn("Reconnect attempt failed", "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectMax {
			delay = reconnectMax
		}
	}
}

func (r *Realtime) topic() string {
	return "realtime:public:" + r.table
}

func (r *Realtime) socketURL() string {
	u := r.baseURL
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/realtime/v1/websocket?apikey=" + r.anonKey + "&vsn=1.0.0"
}
