// Package search maintains a full-text index over archived session
// messages, queried from the chat CLI with /find.
package search

import (
	"context"
	"log/slog"

	"sealtalk/domain"
	"sealtalk/domain/event"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

// Index wraps a bluge writer for the message content field.
type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(writer *bluge.Writer, log *slog.Logger) *Index {
	return &Index{writer: writer, log: log}
}

// Hit is one search result, rebuilt from stored fields.
type Hit struct {
	ID      string
	Sender  string
	Content string
}

func (i *Index) IndexMessage(m domain.Message) error {
	doc := bluge.NewDocument(m.ID.String()).
		AddField(bluge.NewTextField("content", m.Content).StoreValue()).
		AddField(bluge.NewTextField("sender", m.SenderName).StoreValue()).
		AddField(bluge.NewDateTimeField("created_at", m.CreatedAt))
	return i.writer.Update(doc.ID(), doc)
}

func (i *Index) DeleteMessage(id uuid.UUID) error {
	return i.writer.Delete(bluge.Identifier(id.String()))
}

// Search matches terms against message content and returns up to limit
// hits, best score first.
func (i *Index) Search(ctx context.Context, terms string, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()

	query := bluge.NewMatchQuery(terms).SetField("content")
	request := bluge.NewTopNSearch(limit, query)

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}

		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID = string(value)
			case "content":
				hit.Content = string(value)
			case "sender":
				hit.Sender = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Sink feeds the index from the serialized change event path.
type Sink struct {
	index *Index
}

func NewSink(index *Index) *Sink {
	return &Sink{index: index}
}

func (s *Sink) Consume(_ context.Context, e event.ChangeEvent) error {
	switch evt := e.(type) {
	case event.MessageInserted:
		return s.index.IndexMessage(evt.Message)
	case event.MessageDeleted:
		return s.index.DeleteMessage(evt.ID)
	}
	return nil
}
