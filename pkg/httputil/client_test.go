package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundnav/pkg/config"
	"github.com/wonny/fundnav/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Env: "development",
		HTTP: config.HTTPConfig{
			Timeout:    2 * time.Second,
			MaxRetries: 0,
			UserAgent:  "fundnav-test",
		},
	}
}

func TestNew(t *testing.T) {
	client, err := New(testConfig(), logger.Nop())
	require.NoError(t, err)
	require.NotNil(t, client.httpClient)
	assert.Equal(t, 2*time.Second, client.httpClient.Timeout)
	assert.False(t, client.retryConfig.Enabled)
	assert.Nil(t, client.limiter)
}

func TestNewInvalidProxy(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.ProxyURL = "127.0.0.1:7890"

	_, err := New(cfg, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidProxy))
}

func TestNewWithProxy(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.ProxyURL = "http://127.0.0.1:7890"

	client, err := New(cfg, logger.Nop())
	require.NoError(t, err)

	transport, ok := client.httpClient.Transport.(*http.Transport)
	require.True(t, ok)
	require.NotNil(t, transport.Proxy)

	req := httptest.NewRequest(http.MethodGet, "https://hq.sinajs.cn/list=sh600000", nil)
	proxy, err := transport.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7890", proxy.Host)
}

func TestGetTextSendsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fundnav-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "https://finance.sina.com.cn", r.Header.Get("Referer"))
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	client, err := New(testConfig(), logger.Nop())
	require.NoError(t, err)

	body, err := client.GetText(context.Background(), server.URL, map[string]string{
		"Referer": "https://finance.sina.com.cn",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", body)
}

func TestGetTextStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := New(testConfig(), logger.Nop())
	require.NoError(t, err)

	_, err = client.GetText(context.Background(), server.URL, nil)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestRetryOn5xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	client, err := New(testConfig(), logger.Nop())
	require.NoError(t, err)
	client.WithRetry(3, 10*time.Millisecond)

	body, err := client.GetText(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := New(testConfig(), logger.Nop())
	require.NoError(t, err)
	client.WithRetry(5, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.GetText(ctx, server.URL, nil)
	require.Error(t, err)
}

func TestConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	client, err := New(testConfig(), logger.Nop())
	require.NoError(t, err)

	_, err = client.GetText(context.Background(), target, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP request failed")
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		statusCode int
		want       bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.statusCode), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.statusCode))
		})
	}
}
