package httphandler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jgivc/proxyctl/internal/common"
	"github.com/jgivc/proxyctl/internal/handler/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoDispatcher struct {
	method string
	params []rpc.Primitive
}

func (e *echoDispatcher) Call(method string, params []rpc.Primitive) ([]rpc.Primitive, error) {
	if method == "missing" {
		return nil, common.ErrUnknownMethod
	}
	e.method, e.params = method, params

	if len(params) < 1 {
		return []rpc.Primitive{}, nil
	}

	return params, nil
}

func TestCall(t *testing.T) {
	d := &echoDispatcher{}
	reg := prometheus.NewRegistry()
	srv := httptest.NewServer(NewRouter(d, reg, slog.New(slog.NewTextHandler(io.Discard, nil))))
	defer srv.Close()

	testCases := []struct {
		name         string
		method       string
		body         string
		expectedCode int
		expectedBody string
	}{
		{name: "params", method: "set-enabled", body: `[true, "x", 2]`, expectedCode: http.StatusOK, expectedBody: `[true,"x",2]`},
		{name: "no body", method: "list-subscriptions", expectedCode: http.StatusOK, expectedBody: `[]`},
		{name: "not an array", method: "set-enabled", body: `{"a":1}`, expectedCode: http.StatusBadRequest},
		{name: "unknown", method: "missing", body: `[]`, expectedCode: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/v1/call/"+tc.method, "application/json", strings.NewReader(tc.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedCode, resp.StatusCode)
			if tc.expectedBody == "" {
				return
			}

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.JSONEq(t, tc.expectedBody, string(body))
			assert.Equal(t, tc.method, d.method)
		})
	}

	t.Run("float params", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/v1/call/delete-subscription", "application/json", strings.NewReader(`[1]`))
		require.NoError(t, err)
		resp.Body.Close()

		require.Len(t, d.params, 1)
		assert.Equal(t, 1.0, d.params[0])
	})

	t.Run("get not allowed", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/v1/call/set-enabled")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
