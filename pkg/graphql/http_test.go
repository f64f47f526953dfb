package graphql

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestHandlerPost(t *testing.T) {
	schema, _, sc := setupSchema(t, nil)
	handler := NewHandler(schema, 0, nil)

	body, _ := json.Marshal(GraphQLRequest{
		Query:     `query($id: ID!) { scene(id: $id) { name } }`,
		Variables: map[string]any{"id": sc.ID},
	})
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var resp GraphQLResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Errors) > 0 {
		t.Fatalf("errors: %v", resp.Errors)
	}
	name := resp.Data.(map[string]any)["scene"].(map[string]any)["name"]
	if name != "Main hall" {
		t.Errorf("name = %v", name)
	}
}

func TestHandlerGet(t *testing.T) {
	schema, _, _ := setupSchema(t, nil)
	handler := NewHandler(schema, 0, nil)

	req := httptest.NewRequest(http.MethodGet, "/graphql?query="+url.QueryEscape(`{ health }`), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var resp GraphQLResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.(map[string]any)["health"] != "ok" {
		t.Errorf("data = %v", resp.Data)
	}
}

func TestHandlerErrors(t *testing.T) {
	schema, _, _ := setupSchema(t, nil)
	handler := NewHandler(schema, 2, nil)

	tests := []struct {
		name      string
		method    string
		body      string
		status    int
		wantError bool
	}{
		{"bad json", http.MethodPost, `{"query":`, http.StatusBadRequest, true},
		{"empty query", http.MethodPost, `{"query":""}`, http.StatusBadRequest, true},
		{"method", http.MethodPut, `{}`, http.StatusMethodNotAllowed, true},
		{"too deep", http.MethodPost, `{"query":"{ scenes(projectId: \"p1\") { runs { id } } }"}`, http.StatusOK, true},
		{"unknown field", http.MethodPost, `{"query":"{ nope }"}`, http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/graphql", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var resp GraphQLResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tt.wantError && len(resp.Errors) == 0 {
				t.Error("expected errors in response")
			}
		})
	}
}
