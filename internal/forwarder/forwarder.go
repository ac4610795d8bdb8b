// Package forwarder relays an authenticated request to the downstream
// payment service (spec §4.7), attaching the bearer token and a
// correlation id, and retrying exactly once on a 401 by asking the
// authentication service for a fresh token.
package forwarder

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/metrics"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/tokens"
)

// CorrelationIDHeader is the header propagated end to end for trace
// stitching across authentication, forwarding, and the downstream
// service.
const CorrelationIDHeader = "X-Correlation-ID"

// responseHeaderDenylist are hop-by-hop or internal headers stripped
// from the downstream response before it is relayed to the caller.
var responseHeaderDenylist = map[string]bool{
	"Connection":       true,
	"Keep-Alive":       true,
	"Transfer-Encoding": true,
	"Te":               true,
	"Trailer":          true,
	"Upgrade":          true,
}

// Refresher mints a replacement token for the client a token was
// issued to; authsvc.Service.Refresh satisfies this.
type Refresher interface {
	Refresh(ctx context.Context, oldTokenString string) (*tokens.Token, error)
}

// Request is the forward operation's input.
type Request struct {
	Method        string
	Path          string
	Body          []byte
	Token         *tokens.Token
	CorrelationID string
	ExtraHeaders  http.Header
}

// Response is the opaque result relayed back to the caller.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Forwarder sends requests to a fixed downstream base URL.
type Forwarder struct {
	baseURL   string
	client    *http.Client
	refresher Refresher
}

// New builds a Forwarder targeting baseURL (e.g.
// "https://payment-sapi.internal"). refresher may be nil, in which
// case a downstream 401 is surfaced as-is rather than retried.
func New(baseURL string, client *http.Client, refresher Refresher) *Forwarder {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Forwarder{baseURL: baseURL, client: client, refresher: refresher}
}

// Forward implements spec §4.7. Exactly one retry is attempted after a
// downstream 401, by refreshing the token; any other status or error
// surfaces as-is.
func (f *Forwarder) Forward(ctx context.Context, req Request) (*Response, error) {
	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	resp, err := f.do(ctx, req, correlationID)
	if err != nil {
		metrics.ForwardedRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && f.refresher != nil && req.Token != nil {
		fresh, refreshErr := f.refresher.Refresh(ctx, req.Token.TokenString)
		if refreshErr == nil {
			req.Token = fresh
			resp, err = f.do(ctx, req, correlationID)
			if err != nil {
				metrics.ForwardedRequests.WithLabelValues("error").Inc()
				return nil, err
			}
		}
	}

	metrics.ForwardedRequests.WithLabelValues(outcomeBucket(resp.StatusCode)).Inc()
	return resp, nil
}

func outcomeBucket(status int) string {
	switch {
	case status >= 500:
		return "downstream_5xx"
	case status >= 400:
		return "downstream_4xx"
	default:
		return "success"
	}
}

func (f *Forwarder) do(ctx context.Context, req Request, correlationID string) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, f.baseURL+req.Path, body)
	if err != nil {
		return nil, err
	}

	for k, vs := range req.ExtraHeaders {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Token != nil {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token.TokenString)
	}
	httpReq.Header.Set(CorrelationIDHeader, correlationID)

	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	header := make(http.Header, len(httpResp.Header))
	for k, vs := range httpResp.Header {
		if responseHeaderDenylist[k] {
			continue
		}
		header[k] = vs
	}

	return &Response{StatusCode: httpResp.StatusCode, Header: header, Body: respBody}, nil
}
