package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodySize    = 4 << 20 // 4 MB
	userAgent      = "chainfund/1.0"
)

// ErrNoGateway indicates that no gateway URL is configured.
var ErrNoGateway = errors.New("ledger: no gateway URL configured")

// HTTPGateway speaks the gateway's JSON-over-HTTP protocol.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
}

// NewHTTPGateway creates a gateway client for baseURL.
// A zero timeout uses the default of 30 seconds.
func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) (*HTTPGateway, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrNoGateway
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("ledger: invalid gateway URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		timeout: timeout,
		http:    &http.Client{},
	}, nil
}

type callRequest struct {
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

type callResponse struct {
	Result json.RawMessage `json:"result"`
}

type sendRequest struct {
	Method string `json:"method"`
	Args   []any  `json:"args"`
	Value  string `json:"value,omitempty"`
	From   string `json:"from,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Call performs a read-only contract call.
func (g *HTTPGateway) Call(ctx context.Context, contract, method string, args ...any) (json.RawMessage, error) {
	if args == nil {
		args = []any{}
	}
	var resp callResponse
	if err := g.post(ctx, contract, "call", callRequest{Method: method, Args: args}, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// Send submits a transaction and returns its receipt. A reverted
// transaction is reported as a *GatewayError.
func (g *HTTPGateway) Send(ctx context.Context, tx Tx) (*Receipt, error) {
	req := sendRequest{Method: tx.Method, Args: tx.Args, From: tx.From}
	if req.Args == nil {
		req.Args = []any{}
	}
	if tx.Value != nil {
		req.Value = tx.Value.String()
	}

	var receipt Receipt
	if err := g.post(ctx, tx.Contract, "send", req, &receipt); err != nil {
		return nil, err
	}
	if receipt.Status == StatusReverted {
		return nil, &GatewayError{
			StatusCode: http.StatusOK,
			Code:       "execution_reverted",
			Message:    fmt.Sprintf("transaction %s reverted", receipt.TxHash),
		}
	}
	return &receipt, nil
}

// post sends body to {base}/v1/contracts/{contract}/{op} and decodes the reply into out.
func (g *HTTPGateway) post(ctx context.Context, contract, op string, body, out any) error {
	if contract == "" {
		return &GatewayError{Message: "no contract address configured", Err: ErrUnavailable}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("ledger: encoding request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/contracts/%s/%s", g.baseURL, url.PathEscape(contract), op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ledger: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	//nolint:gosec // URL is built from the configured gateway base
	resp, err := g.http.Do(req)
	if err != nil {
		return &GatewayError{
			Message: fmt.Sprintf("%s %s: %v", op, contract, err),
			Err:     errors.Join(ErrUnavailable, err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &GatewayError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("reading response: %v", err),
			Err:        err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &GatewayError{
			StatusCode: resp.StatusCode,
			Code:       "bad_response",
			Message:    fmt.Sprintf("decoding %s response: %v", op, err),
			Err:        err,
		}
	}
	return nil
}

// decodeError builds a GatewayError from a non-2xx reply. Bodies that are
// not in the gateway's error format fall back to the HTTP status text.
func decodeError(status int, data []byte) *GatewayError {
	ge := &GatewayError{StatusCode: status, Message: http.StatusText(status)}
	var er errorResponse
	if err := json.Unmarshal(data, &er); err == nil && er.Error.Message != "" {
		ge.Code = er.Error.Code
		ge.Message = er.Error.Message
	}
	return ge
}
