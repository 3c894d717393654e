package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
	"github.com/xinkaiwang/helloecho/services/echoapi/internal/biz"
	"github.com/xinkaiwang/helloecho/services/echoapi/internal/handler"
)

func withSilentLog(t *testing.T) {
	old := klogging.GetLogger()
	klogging.SetDefaultLogger(klogging.NewNullLogger())
	t.Cleanup(func() { klogging.SetDefaultLogger(old) })
}

func newTestServer(t *testing.T) *httptest.Server {
	h := handler.NewHandler(biz.NewApp(10)).Build(context.Background(), []string{"http://localhost:3000"})
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return server
}

func TestEndToEnd(t *testing.T) {
	withSilentLog(t)
	ctx := context.Background()
	c := New(newTestServer(t).URL + "/")

	msg, err := c.Hello(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", msg)

	msg, err = c.Echo(ctx, "ping")
	require.NoError(t, err)
	assert.Equal(t, "ping", msg)

	_, err = c.Echo(ctx, "")
	require.Error(t, err)
	ke, ok := err.(*kerror.Kerror)
	require.True(t, ok)
	assert.Equal(t, ErrNetworkResponseNotOk, ke.Type)
	assert.Equal(t, "Network response was not ok", ke.Msg)
	assert.Equal(t, kerror.EC_INVALID_PARAMETER, ke.ErrorCode)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	assert.Equal(t, "Text is required", ServerError(err))
}

func TestRequestIdPropagation(t *testing.T) {
	withSilentLog(t)
	got := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("X-Request-Id")
		w.Write([]byte(`{"message":"Hello World"}`))
	}))
	defer server.Close()

	ctx := klogging.EmbedTraceId(context.Background(), "req_TEST")
	_, err := New(server.URL).Hello(ctx)
	require.NoError(t, err)
	assert.Equal(t, "req_TEST", <-got)
}

func TestNetworkError(t *testing.T) {
	withSilentLog(t)
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := New(url).Hello(context.Background())
	require.Error(t, err)
	ke, ok := err.(*kerror.Kerror)
	require.True(t, ok)
	assert.Equal(t, ErrNetworkError, ke.Type)
	assert.Equal(t, kerror.EC_NETWORK_ERR, ke.ErrorCode)
	assert.Equal(t, 0, StatusCode(err))
}

func TestNonJsonErrorBody(t *testing.T) {
	withSilentLog(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL).Echo(context.Background(), "x")
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
	assert.Equal(t, "", ServerError(err))
}

func TestInvalidResponse(t *testing.T) {
	withSilentLog(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := New(server.URL, WithHTTPClient(server.Client())).Hello(context.Background())
	ke, ok := err.(*kerror.Kerror)
	require.True(t, ok)
	assert.Equal(t, ErrInvalidResponse, ke.Type)
}
