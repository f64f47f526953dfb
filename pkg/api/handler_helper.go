package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/api/middleware"
	"github.com/dd0wney/aspire-acoustics/pkg/catalog"
	"github.com/dd0wney/aspire-acoustics/pkg/logging"
	"github.com/dd0wney/aspire-acoustics/pkg/room"
	"github.com/dd0wney/aspire-acoustics/pkg/scene"
	"github.com/dd0wney/aspire-acoustics/pkg/signalchain"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
	"github.com/dd0wney/aspire-acoustics/pkg/validation"
)

// requestDecoder decodes and validates request bodies.
// It provides a fluent interface for common request handling patterns.
type requestDecoder struct {
	r          *http.Request
	w          http.ResponseWriter
	server     *Server
	err        error
	errs       []string
	statusCode int
}

// NewRequestDecoder creates a new request decoder for the given request.
func (s *Server) NewRequestDecoder(w http.ResponseWriter, r *http.Request) *requestDecoder {
	return &requestDecoder{r: r, w: w, server: s}
}

// DecodeJSON decodes the request body into v. Unknown fields are rejected.
func (rd *requestDecoder) DecodeJSON(v any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	dec := json.NewDecoder(rd.r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			rd.err = errors.New("request body too large")
			rd.statusCode = http.StatusRequestEntityTooLarge
		default:
			rd.err = fmt.Errorf("invalid request body: %w", err)
			rd.statusCode = http.StatusBadRequest
		}
	}
	return rd
}

// DecodeOptionalJSON is DecodeJSON for endpoints whose body may be empty.
func (rd *requestDecoder) DecodeOptionalJSON(v any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	if rd.r.Body == nil || rd.r.Body == http.NoBody || rd.r.ContentLength == 0 {
		return rd
	}
	rd.DecodeJSON(v)
	if errors.Is(errors.Unwrap(rd.err), io.EOF) {
		rd.err, rd.statusCode = nil, 0
	}
	return rd
}

// Validate checks v's `validate` tags, collecting every failure.
func (rd *requestDecoder) Validate(v any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	if msgs := validation.StructMessages(v); len(msgs) > 0 {
		rd.err = errors.New("request validation failed")
		rd.errs = msgs
		rd.statusCode = http.StatusUnprocessableEntity
	}
	return rd
}

// HasError returns true if any error occurred during decoding/validation.
func (rd *requestDecoder) HasError() bool {
	return rd.err != nil
}

// RespondError sends the error response and returns true if there was an error.
// Returns false if no error occurred.
func (rd *requestDecoder) RespondError() bool {
	if rd.err == nil {
		return false
	}
	rd.server.respondErrorList(rd.w, rd.statusCode, rd.err.Error(), rd.errs)
	return true
}

// queryInt reads a non-negative integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondErrorList(w, status, message, nil)
}

func (s *Server) respondErrorList(w http.ResponseWriter, status int, message string, errs []string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
		Errors:  errs,
	})
}

// respondErr maps a domain error onto a status code. Errors that match no
// known sentinel are logged and reported as a bare 500.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	var reqErr *simulation.RequestError
	var engErr *simulation.EngineError

	switch {
	case errors.As(err, &reqErr):
		s.respondErrorList(w, http.StatusUnprocessableEntity, "simulation request is invalid", reqErr.Errors)
	case errors.Is(err, simulation.ErrSimulationInFlight):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &engErr):
		s.respondError(w, http.StatusBadGateway, engErr.Error())

	case errors.Is(err, scene.ErrSceneNotFound),
		errors.Is(err, signalchain.ErrNodeNotFound),
		errors.Is(err, room.ErrSpeakerNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, acoustics.ErrUnknownMaterial):
		s.respondError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, scene.ErrInvalidScene),
		errors.Is(err, signalchain.ErrUnknownNodeType),
		errors.Is(err, catalog.ErrUnknownKind),
		errors.Is(err, catalog.ErrBadSpec),
		errors.Is(err, acoustics.ErrUnknownFace),
		errors.Is(err, acoustics.ErrMissingCoefficients),
		errors.Is(err, acoustics.ErrInvalidDimensions),
		errors.Is(err, room.ErrDuplicateSpeaker),
		errors.Is(err, room.ErrMissingSpeakerID),
		errors.Is(err, room.ErrUnknownDimension),
		errors.Is(err, simulation.ErrUnknownType):
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, scene.ErrArchiveDisabled):
		s.respondError(w, http.StatusNotImplemented, err.Error())

	default:
		s.logger.Error("request failed",
			logging.Operation(op),
			logging.RequestID(middleware.GetRequestID(r)),
			logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, op+" failed")
	}
}
