package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderStatusDef() Definition {
	def, _ := DefaultCatalog().Get("check_order_status")
	return def
}

func TestHTTPTransport_PathParamsAndEnvelopePassthrough(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"status": "shipped"},
		})
	}))
	defer srv.Close()

	transport := NewHTTPTransport(srv.URL)
	res, err := transport.RoundTrip(context.Background(), orderStatusDef(), map[string]any{"order_id": "1001"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "shipped", res.Data["status"])
	assert.Equal(t, "/api/orders/1001/status", gotPath)
}

func TestHTTPTransport_WrapsBareObjectAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "delivered", "carrier": "DHL"})
	}))
	defer srv.Close()

	res, err := NewHTTPTransport(srv.URL).RoundTrip(context.Background(), orderStatusDef(), map[string]any{"order_id": "1"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "delivered", res.Data["status"])
}

func TestHTTPTransport_NonOKStatusIsFailureNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	res, err := NewHTTPTransport(srv.URL).RoundTrip(context.Background(), orderStatusDef(), map[string]any{"order_id": "1"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "HTTP 502")
}

func TestHTTPTransport_MalformedBodyIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	_, err := NewHTTPTransport(srv.URL).RoundTrip(context.Background(), orderStatusDef(), map[string]any{"order_id": "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed tool response")
}

func TestHTTPTransport_FailureWithoutErrorIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false})
	}))
	defer srv.Close()

	_, err := NewHTTPTransport(srv.URL).RoundTrip(context.Background(), orderStatusDef(), map[string]any{"order_id": "1"})
	assert.Error(t, err)
}

func TestHTTPTransport_PostSendsJSONBody(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	def, _ := DefaultCatalog().Get("process_refund")
	res, err := NewHTTPTransport(srv.URL).RoundTrip(context.Background(), def, map[string]any{
		"order_id": "1001",
		"reason":   "damaged",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "1001", gotBody["order_id"])
}
