package synctransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

var errBaseURLRequired = errors.New("sync remote base url is required")

// PushResult reports the remote verdict for one operation in a batch.
type PushResult struct {
	OperationID uuid.UUID
	Applied     bool
	// Permanent marks rejections that retrying cannot fix.
	Permanent bool
	Error     string
}

// Pusher delivers a batch of outbox operations to the remote store.
type Pusher interface {
	Push(ctx context.Context, stationID uuid.UUID, ops []models.SyncOperation) ([]PushResult, error)
}

// Client pushes outbox batches to the cloud sync endpoint over HTTPS.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds the sync push client for the given remote.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	trimmedURL := strings.TrimSpace(baseURL)
	if trimmedURL == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    strings.TrimRight(trimmedURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return client, nil
}

type pushOperation struct {
	ID         uuid.UUID       `json:"id"`
	OpType     string          `json:"op_type"`
	Collection string          `json:"collection"`
	DocumentID uuid.UUID       `json:"document_id"`
	Payload    json.RawMessage `json:"payload"`
	QueuedAt   time.Time       `json:"queued_at"`
}

type pushRequest struct {
	StationID  uuid.UUID       `json:"station_id"`
	Operations []pushOperation `json:"operations"`
}

type pushResponse struct {
	Results []struct {
		OperationID uuid.UUID `json:"operation_id"`
		Status      string    `json:"status"`
		Error       string    `json:"error,omitempty"`
	} `json:"results"`
}

// Push delivers the batch and returns one result per operation. A transport
// or non-2xx failure returns an error and the whole batch counts as one
// retryable attempt.
func (c *Client) Push(ctx context.Context, stationID uuid.UUID, ops []models.SyncOperation) ([]PushResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "sync client not configured")
	}
	if len(ops) == 0 {
		return nil, nil
	}

	body := pushRequest{StationID: stationID, Operations: make([]pushOperation, 0, len(ops))}
	for _, op := range ops {
		body.Operations = append(body.Operations, pushOperation{
			ID:         op.ID,
			OpType:     string(op.OpType),
			Collection: string(op.Collection),
			DocumentID: op.DocumentID,
			Payload:    json.RawMessage(op.Payload),
			QueuedAt:   op.CreatedAt,
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal sync push request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sync/push", bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build sync push request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute sync push request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "sync push request failed")
	}

	var apiResp pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode sync push response")
	}

	results := make([]PushResult, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		result := PushResult{OperationID: r.OperationID, Error: r.Error}
		switch r.Status {
		case "applied":
			result.Applied = true
		case "rejected":
			result.Permanent = true
		}
		results = append(results, result)
	}

	return results, nil
}
