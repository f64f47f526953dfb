// Package middleware holds the HTTP middleware of the aspire API server.
//
// Every middleware has the shape func(http.Handler) http.Handler, so a chain
// is built by plain wrapping:
//
//	handler := middleware.Recovery(logger)(mux)
//	handler = middleware.Logging(logger)(handler)
//	handler = middleware.Metrics(registry)(handler)
//	handler = middleware.RequestID()(handler)
//
// RequestID should be outermost so the id is on the context for everything
// below it.
package middleware
