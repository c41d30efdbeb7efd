// Package sink delivers processed-record batches to the store API.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Artic67/iot-labs/internal/domain"
	"github.com/Artic67/iot-labs/internal/ports"
)

const ingestPath = "/processed_agent_data/"

// StoreAPISink posts JSON batches to the ingestion endpoint. Network errors,
// timeouts, and 5xx responses are transient; 4xx responses are permanent
// rejections of the payload.
type StoreAPISink struct {
	baseURL string
	client  *http.Client
}

func NewStoreAPISink(baseURL string, client *http.Client) *StoreAPISink {
	if client == nil {
		client = http.DefaultClient
	}
	return &StoreAPISink{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (s *StoreAPISink) Name() string { return "store-api" }

func (s *StoreAPISink) WriteBatch(ctx context.Context, batch []domain.ProcessedAgentData) error {
	if len(batch) == 0 {
		return nil
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return &domain.DeliveryError{Permanent: true, Err: fmt.Errorf("encode batch: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+ingestPath, bytes.NewReader(body))
	if err != nil {
		return &domain.DeliveryError{Permanent: true, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &domain.DeliveryError{
			StatusCode: resp.StatusCode,
			Permanent:  true,
			Err:        fmt.Errorf("store api rejected batch: %s", snippet(resp.Body)),
		}
	default:
		return &domain.DeliveryError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("store api unavailable: %s", snippet(resp.Body)),
		}
	}
}

// snippet reads a bounded error description out of a response body.
func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}

var _ ports.BatchSink = (*StoreAPISink)(nil)
