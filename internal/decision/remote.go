package decision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/desertwitch/rpcfs/internal/access"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	remoteMaxBody      = 1 << 16
	remoteRetryWaitMin = 100 * time.Millisecond
	remoteRetryWaitMax = 2 * time.Second
)

type remoteRequest struct {
	Operation string `json:"operation"`
	Right     string `json:"right"`
	Path      string `json:"path"`
}

type remoteResponse struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason,omitempty"`
}

// Remote asks an HTTP endpoint about every request. The request is POSTed
// as {"operation","right","path"} and the endpoint answers with
// {"allow": bool, "reason": string}. Transient failures are retried.
type Remote struct {
	url    string
	client *retryablehttp.Client
	logger *slog.Logger
}

// NewRemote returns a pointer to a new [Remote] for url. A zero timeout
// leaves request latency to the caller's context.
func NewRemote(url string, timeout time.Duration, retries int, logger *slog.Logger) *Remote {
	if logger == nil {
		logger = slog.Default()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = remoteRetryWaitMin
	client.RetryWaitMax = remoteRetryWaitMax
	client.HTTPClient.Timeout = timeout
	client.Logger = logger.With("component", "remote-policy")
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Remote{
		url:    url,
		client: client,
		logger: logger,
	}
}

// Decide is an [access.Decision] consulting the remote endpoint.
func (r *Remote) Decide(ctx context.Context, req access.Request) (bool, error) {
	body, err := sonic.Marshal(remoteRequest{
		Operation: req.Operation.String(),
		Right:     req.Right.String(),
		Path:      req.Path,
	})
	if err != nil {
		return false, fmt.Errorf("(decision-remote) failed to encode: %w", err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, r.url, body)
	if err != nil {
		return false, fmt.Errorf("(decision-remote) failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}

		return false, fmt.Errorf("(decision-remote) %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return false, fmt.Errorf("(decision-remote) %w: %s", ErrRemoteStatus, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, remoteMaxBody))
	if err != nil {
		return false, fmt.Errorf("(decision-remote) failed to read response: %w", err)
	}

	var out remoteResponse
	if err := sonic.Unmarshal(data, &out); err != nil {
		return false, fmt.Errorf("(decision-remote) failed to decode response: %w", err)
	}

	if !out.Allow && out.Reason != "" {
		r.logger.Debug("Remote policy refused access",
			"op", req.Operation.String(),
			"path", req.Path,
			"reason", out.Reason,
		)
	}

	return out.Allow, nil
}
