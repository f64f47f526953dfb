package simulation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Simulate(t *testing.T) {
	var got EngineRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, rt60Path, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(successResponse(1.8, map[string]float64{"500": 1.8}))
	}))
	defer server.Close()

	c := NewClient(ClientConfig{BaseURL: server.URL + "/"})
	resp, err := c.Simulate(context.Background(), EngineRequest{SimulationType: TypeEyring, Params: Params{FrequencyBands: []int{500}}})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Status)
	require.NotNil(t, resp.Results)
	assert.Equal(t, 1.8, resp.Results.AverageRT60)
	assert.Equal(t, TypeEyring, got.SimulationType)
}

func TestClient_ErrorStatusIsReturnedAsIs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","metadata":{"simulation_id":null,"engine_used":"sabine","execution_time_seconds":0,"timestamp":""},"results":null,"error_message":"bad geometry"}`))
	}))
	defer server.Close()

	resp, err := NewClient(ClientConfig{BaseURL: server.URL}).Simulate(context.Background(), EngineRequest{})
	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Status)
	assert.Nil(t, resp.Results)
	assert.Equal(t, "bad geometry", resp.Failure())
}

func TestClient_HTTPError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message", `{"message":"engine overloaded"}`, "engine overloaded"},
		{"fastapi detail", `{"detail":"field required"}`, "field required"},
		{"empty", ``, "HTTP Error 503"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(ClientConfig{BaseURL: server.URL}).Simulate(context.Background(), EngineRequest{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEngineFailure)
			var ee *EngineError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, http.StatusServiceUnavailable, ee.StatusCode)
			assert.Equal(t, tt.want, ee.Message)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := NewClient(ClientConfig{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := c.Simulate(context.Background(), EngineRequest{})
	assert.ErrorIs(t, err, ErrEngineFailure)
	assert.Contains(t, err.Error(), "did not answer")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(ClientConfig{BaseURL: url}).Health(context.Background())
	assert.ErrorIs(t, err, ErrEngineFailure)
}

func TestClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, healthPath, r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"healthy","version":"1.2.0"}`))
	}))
	defer server.Close()

	h, err := NewClient(ClientConfig{BaseURL: server.URL}).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "1.2.0", h.Version)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(ClientConfig{})
	assert.Equal(t, DefaultEngineURL, c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.timeout)
}
