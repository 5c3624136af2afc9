// Package elasticsearch keeps a full-text index of messages, scoped by receiver.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "text":        {"type": "text"},
      "receiver_id": {"type": "keyword"},
      "topic_id":    {"type": "keyword"},
      "created_at":  {"type": "date"}
    }
  }
}`

type MessageIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewMessageIndex(es *elasticsearch.Client, index string) *MessageIndex {
	return &MessageIndex{es: es, index: index}
}

func (x *MessageIndex) do(ctx context.Context, req esapi.Request) (*esapi.Response, error) {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (x *MessageIndex) EnsureIndex(ctx context.Context) error {
	res, err := x.do(ctx, esapi.IndicesExistsRequest{Index: []string{x.index}})
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = x.do(ctx, esapi.IndicesCreateRequest{Index: x.index, Body: strings.NewReader(indexMapping)})
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", x.index, res.Status())
	}
	return nil
}

type messageDoc struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	ReceiverID string    `json:"receiver_id,omitempty"`
	TopicID    string    `json:"topic_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (x *MessageIndex) Index(ctx context.Context, m entity.Message) error {
	b, err := json.Marshal(messageDoc(m))
	if err != nil {
		return err
	}
	res, err := x.do(ctx, esapi.IndexRequest{Index: x.index, DocumentID: m.ID, Body: bytes.NewReader(b), Refresh: "false"})
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index message %s: %s", m.ID, res.Status())
	}
	return nil
}

func (x *MessageIndex) Delete(ctx context.Context, id string) error {
	res, err := x.do(ctx, esapi.DeleteRequest{Index: x.index, DocumentID: id})
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete message %s: %s", id, res.Status())
	}
	return nil
}

// Search matches q against the text of messages received by receiverID.
func (x *MessageIndex) Search(ctx context.Context, receiverID, q string, size int) ([]entity.Message, error) {
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   []any{map[string]any{"match": map[string]any{"text": q}}},
				"filter": []any{map[string]any{"term": map[string]any{"receiver_id": receiverID}}},
			},
		},
		"size": size,
		"sort": []any{"_score", map[string]any{"created_at": "desc"}},
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := x.es.Search(
		x.es.Search.WithContext(c),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search messages: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source messageDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]entity.Message, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, entity.Message(h.Source))
	}
	return out, nil
}
