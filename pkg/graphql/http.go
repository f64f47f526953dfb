package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/aspire-acoustics/pkg/logging"
)

// GraphQLRequest represents a GraphQL HTTP request
type GraphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// GraphQLResponse represents a GraphQL HTTP response
type GraphQLResponse struct {
	Data   any            `json:"data,omitempty"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// GraphQLError represents a GraphQL error
type GraphQLError struct {
	Message string `json:"message"`
}

// Handler serves the schema over HTTP. POST takes a JSON body; GET reads
// the query and operationName parameters.
type Handler struct {
	schema   graphql.Schema
	maxDepth int
	logger   logging.Logger
}

// NewHandler returns a handler enforcing maxDepth; 0 means DefaultMaxDepth.
func NewHandler(schema graphql.Schema, maxDepth int, logger logging.Logger) *Handler {
	if maxDepth == 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Handler{
		schema:   schema,
		maxDepth: maxDepth,
		logger:   logging.OrNop(logger).With(logging.Component("graphql")),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req GraphQLRequest
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, GraphQLResponse{Errors: []GraphQLError{{Message: "invalid request body"}}})
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, GraphQLResponse{Errors: []GraphQLError{{Message: "method not allowed"}}})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, GraphQLResponse{Errors: []GraphQLError{{Message: "query is required"}}})
		return
	}

	result := ExecuteQuery(r.Context(), h.schema, req.Query, req.Variables, req.OperationName, h.maxDepth)

	response := GraphQLResponse{Data: result.Data}
	if result.HasErrors() {
		response.Errors = make([]GraphQLError, len(result.Errors))
		for i, err := range result.Errors {
			response.Errors[i] = GraphQLError{Message: err.Message}
		}
		h.logger.Debug("graphql query returned errors",
			logging.String("operation", req.OperationName),
			logging.Count(len(result.Errors)))
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
