package graphql

import (
	"context"
	"strings"
	"testing"

	"github.com/graphql-go/graphql/language/parser"
)

func TestCalculateQueryDepth(t *testing.T) {
	tests := []struct {
		name  string
		query string
		depth int
	}{
		{"flat", `{ health }`, 1},
		{"one level", `{ scenes(projectId: "p") { id } }`, 2},
		{"nested", `{ scenes(projectId: "p") { runs { id } } }`, 3},
		{"introspection ignored", `{ __schema { types { name } } }`, 1},
		{"inline fragment", `{ scenes(projectId: "p") { ... on Scene { runs { id } } } }`, 3},
		{"named fragment", `query { scenes(projectId: "p") { ...S } } fragment S on Scene { dimensions { width } }`, 3},
		{"self spread", `query { scenes(projectId: "p") { ...S } } fragment S on Scene { id ...S }`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := parser.Parse(parser.ParseParams{Source: tt.query})
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := calculateQueryDepth(doc); got != tt.depth {
				t.Errorf("depth = %d, want %d", got, tt.depth)
			}
		})
	}
}

func TestValidateQueryDepth(t *testing.T) {
	if err := ValidateQueryDepth(`{ scenes(projectId: "p") { runs { id } } }`, 3); err != nil {
		t.Errorf("depth 3 within limit 3: %v", err)
	}
	err := ValidateQueryDepth(`{ scenes(projectId: "p") { runs { id } } }`, 2)
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("expected depth error, got %v", err)
	}
	if err := ValidateQueryDepth(`{ scenes(`, 5); err == nil {
		t.Error("expected a parse error")
	}
}

func TestExecuteQueryRejectsDeepQuery(t *testing.T) {
	schema, _, _ := setupSchema(t, nil)
	result := ExecuteQuery(context.Background(), schema, `{ scenes(projectId: "p1") { runs { id } } }`, nil, "", 2)
	if !result.HasErrors() {
		t.Fatal("expected the depth limit to reject the query")
	}
	if result.Data != nil {
		t.Errorf("rejected query should not execute, got %v", result.Data)
	}
}
