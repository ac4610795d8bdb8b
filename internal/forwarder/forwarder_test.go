package forwarder_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/forwarder"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/tokens"
)

type fakeRefresher struct {
	refreshed int32
}

func (f *fakeRefresher) Refresh(ctx context.Context, oldTokenString string) (*tokens.Token, error) {
	atomic.AddInt32(&f.refreshed, 1)
	return &tokens.Token{TokenString: "fresh-token"}, nil
}

func TestForwardAttachesBearerAndCorrelationID(t *testing.T) {
	var gotAuth, gotCorrelation string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCorrelation = r.Header.Get(forwarder.CorrelationIDHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := forwarder.New(srv.URL, nil, nil)
	resp, err := f.Forward(context.Background(), forwarder.Request{
		Method:        http.MethodGet,
		Path:          "/internal/v1/payments/1",
		Token:         &tokens.Token{TokenString: "tok-123"},
		CorrelationID: "corr-abc",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "corr-abc", gotCorrelation)
}

func TestForwardGeneratesCorrelationIDWhenAbsent(t *testing.T) {
	var gotCorrelation string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCorrelation = r.Header.Get(forwarder.CorrelationIDHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := forwarder.New(srv.URL, nil, nil)
	_, err := f.Forward(context.Background(), forwarder.Request{Method: http.MethodGet, Path: "/x"})
	require.NoError(t, err)
	assert.NotEmpty(t, gotCorrelation)
}

func TestForwardRetriesOnceAfter401(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer fresh-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	refresher := &fakeRefresher{}
	f := forwarder.New(srv.URL, nil, refresher)
	resp, err := f.Forward(context.Background(), forwarder.Request{
		Method: http.MethodGet,
		Path:   "/x",
		Token:  &tokens.Token{TokenString: "stale-token"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&refresher.refreshed))
}

func TestForwardPassesThroughOtherFailuresUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := forwarder.New(srv.URL, nil, nil)
	resp, err := f.Forward(context.Background(), forwarder.Request{Method: http.MethodGet, Path: "/x"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
