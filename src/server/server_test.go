package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"futuresexecutor/src/handler"
	"futuresexecutor/src/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubCycles struct{}

func (stubCycles) FindRecent(_ context.Context, symbol string, _ int) ([]model.CycleRecord, error) {
	return []model.CycleRecord{{ID: 1, Symbol: symbol}}, nil
}

func get(t *testing.T, h http.Handler, path string, auth ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if len(auth) == 2 {
		req.SetBasicAuth(auth[0], auth[1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouterPublic(t *testing.T) {
	h := NewRouter(&Config{}, handler.NewStatsBoard("BTCUSDT"), nil, "BTCUSDT")

	rr := get(t, h, "/healthcheck")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	assert.Equal(t, http.StatusOK, get(t, h, "/stats").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/cycles").Code)
}

func TestRouterProtected(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := &Config{StatsUser: "ops", StatsPasswordHash: string(hash)}
	h := NewRouter(cfg, handler.NewStatsBoard("BTCUSDT"), stubCycles{}, "BTCUSDT")

	assert.Equal(t, http.StatusOK, get(t, h, "/healthcheck").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/stats").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/cycles").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/stats", "ops", "pw").Code)

	rr := get(t, h, "/cycles", "ops", "pw")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"symbol":"BTCUSDT"`)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, NewRouter(&Config{}, handler.NewStatsBoard("BTCUSDT"), nil, "BTCUSDT"))
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthcheck")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatalf("server did not shut down")
	}
}
