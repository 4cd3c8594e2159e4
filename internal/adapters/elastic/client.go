// Package elastic adapts the go-elasticsearch client to the search index port.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/example/orphanscan/internal/ports/secondary"
)

// Config holds connection settings for the index cluster.
type Config struct {
	Addresses []string
	Username  string
	Password  string

	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// ResponseError is a non-2xx response from the cluster.
type ResponseError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("elastic: %s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the cluster.
func IsNotFound(err error) bool {
	var respErr *ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

// Index implements secondary.SearchIndex.
type Index struct {
	es *elasticsearch.Client
}

// New creates an index adapter. It does not contact the cluster.
func New(cfg Config) (*Index, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &Index{es: es}, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Index  string          `json:"_index"`
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs query against the index pattern.
func (i *Index) Search(ctx context.Context, index string, query map[string]any) ([]secondary.IndexHit, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("elastic: encoding query: %w", err)
	}

	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(index),
		i.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("elastic: search %s: %w", index, err)
	}
	defer res.Body.Close()

	if err := checkResponse("search", res); err != nil {
		return nil, err
	}

	var decoded searchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("elastic: decoding search response: %w", err)
	}

	hits := make([]secondary.IndexHit, 0, len(decoded.Hits.Hits))
	for _, h := range decoded.Hits.Hits {
		hits = append(hits, secondary.IndexHit{Index: h.Index, ID: h.ID, Source: h.Source})
	}
	return hits, nil
}

// Update applies a partial document update.
func (i *Index) Update(ctx context.Context, index, id string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("elastic: encoding update: %w", err)
	}

	res, err := i.es.Update(index, id, bytes.NewReader(payload), i.es.Update.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elastic: update %s/%s: %w", index, id, err)
	}
	defer res.Body.Close()

	err = checkResponse("update", res)
	if IsNotFound(err) {
		return fmt.Errorf("elastic: document %s/%s no longer exists: %w", index, id, err)
	}
	return err
}

func checkResponse(op string, res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return &ResponseError{Op: op, StatusCode: res.StatusCode, Body: string(data)}
}

var _ secondary.SearchIndex = (*Index)(nil)
