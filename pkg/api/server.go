// Package api is the HTTP JSON interface of the aspire service: scenes, their
// signal chain and room editors, the catalog, and simulation runs.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/api/middleware"
	"github.com/dd0wney/aspire-acoustics/pkg/catalog"
	"github.com/dd0wney/aspire-acoustics/pkg/editor"
	"github.com/dd0wney/aspire-acoustics/pkg/health"
	"github.com/dd0wney/aspire-acoustics/pkg/logging"
	"github.com/dd0wney/aspire-acoustics/pkg/metrics"
	"github.com/dd0wney/aspire-acoustics/pkg/pubsub"
	"github.com/dd0wney/aspire-acoustics/pkg/room"
	"github.com/dd0wney/aspire-acoustics/pkg/scene"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

// Version is reported by the health endpoints.
const Version = "1.0.0"

// DefaultHeartbeat is the idle interval of the event stream.
const DefaultHeartbeat = 25 * time.Second

// Config wires a Server. Store, Catalog and Runner are required.
type Config struct {
	Store    scene.Store
	Catalog  catalog.Catalog
	Runner   *simulation.Runner
	Bus      *pubsub.Bus
	Metrics  *metrics.Registry
	Health   *health.HealthChecker
	Archiver *scene.Archiver
	GraphQL  http.Handler
	Logger   logging.Logger

	Placement   room.CirclePlacement
	Bands       []int
	DefaultType simulation.Type

	CORS         *middleware.CORSConfig
	MaxBodyBytes int64
	Heartbeat    time.Duration
}

// Server represents the HTTP API server
type Server struct {
	store    scene.Store
	catalog  catalog.Catalog
	runner   *simulation.Runner
	bus      *pubsub.Bus
	metrics  *metrics.Registry
	health   *health.HealthChecker
	archiver *scene.Archiver
	graphql  http.Handler
	logger   logging.Logger
	sessions *sessionRegistry

	placement   room.CirclePlacement
	bands       []int
	defaultType simulation.Type

	cors         *middleware.CORSConfig
	maxBodyBytes int64
	heartbeat    time.Duration
	startTime    time.Time
}

// NewServer creates a new API server
func NewServer(cfg Config) (*Server, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("api: scene store is required")
	case cfg.Catalog == nil:
		return nil, errors.New("api: catalog is required")
	case cfg.Runner == nil:
		return nil, errors.New("api: simulation runner is required")
	}

	s := &Server{
		store:        cfg.Store,
		catalog:      cfg.Catalog,
		runner:       cfg.Runner,
		bus:          cfg.Bus,
		metrics:      cfg.Metrics,
		health:       cfg.Health,
		archiver:     cfg.Archiver,
		graphql:      cfg.GraphQL,
		logger:       logging.OrNop(cfg.Logger).With(logging.Component("api")),
		placement:    cfg.Placement,
		bands:        cfg.Bands,
		defaultType:  cfg.DefaultType,
		cors:         cfg.CORS,
		maxBodyBytes: cfg.MaxBodyBytes,
		heartbeat:    cfg.Heartbeat,
		startTime:    time.Now(),
	}
	if s.placement.Radius <= 0 {
		s.placement = room.DefaultPlacement()
	}
	if len(s.bands) == 0 {
		s.bands = acoustics.StandardFrequencies()
	}
	if s.defaultType == "" {
		s.defaultType = simulation.DefaultType
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = middleware.DefaultMaxBodyBytes
	}
	if s.heartbeat <= 0 {
		s.heartbeat = DefaultHeartbeat
	}
	if s.health == nil {
		s.health = health.NewHealthChecker()
		s.health.RegisterLivenessCheck("process", health.SimpleCheck("process"))
		s.health.RegisterReadinessCheck("store", health.StoreCheck(s.store.Ping))
	}

	var pub pubsub.Publisher
	if s.bus != nil {
		pub = s.bus
	}
	s.sessions = newSessionRegistry(s.store, cfg.Logger, pub, s.editorRecorder(), s.sessionCount)
	return s, nil
}

func (s *Server) editorRecorder() editor.Recorder {
	if s.metrics == nil {
		return nil
	}
	return s.metrics
}

func (s *Server) sessionCount(n int) {
	if s.metrics != nil {
		s.metrics.SetEditorSessions(n)
	}
}

// Handler returns the routed API wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = middleware.BodySizeLimit(s.maxBodyBytes)(h)
	h = middleware.Recovery(s.logger)(h)
	h = middleware.Logging(s.logger)(h)
	if s.metrics != nil {
		h = middleware.Metrics(s.metrics)(h)
	}
	h = middleware.CORS(s.cors)(h)
	h = middleware.RequestID()(h)
	return h
}

func (s *Server) routes(mux *http.ServeMux) {
	// Health and metrics
	mux.HandleFunc("GET /health", s.health.HTTPHandler())
	mux.HandleFunc("GET /health/live", s.health.LivenessHandler())
	mux.HandleFunc("GET /health/ready", s.health.ReadinessHandler())
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metricsHandler())
	}

	// Catalog
	mux.HandleFunc("GET /api/catalog/{kind}", s.handleListCatalog)
	mux.HandleFunc("GET /api/catalog/{kind}/{id}", s.handleGetCatalogItem)
	mux.HandleFunc("GET /api/materials", s.handleListMaterials)
	mux.HandleFunc("GET /api/simulation-types", s.handleSimulationTypes)

	// Scenes
	mux.HandleFunc("POST /api/scenes", s.handleCreateScene)
	mux.HandleFunc("GET /api/scenes", s.handleListScenes)
	mux.HandleFunc("GET /api/scenes/{id}", s.handleGetScene)
	mux.HandleFunc("PATCH /api/scenes/{id}", s.handleUpdateScene)
	mux.HandleFunc("DELETE /api/scenes/{id}", s.handleDeleteScene)
	mux.HandleFunc("POST /api/scenes/{id}/duplicate", s.handleDuplicateScene)
	mux.HandleFunc("POST /api/scenes/{id}/archive", s.handleArchiveScene)
	mux.HandleFunc("GET /api/scenes/{id}/events", s.handleSceneEvents)

	// Signal chain editor
	mux.HandleFunc("GET /api/scenes/{id}/signal-chain", s.handleGetSignalChain)
	mux.HandleFunc("POST /api/scenes/{id}/signal-chain/nodes", s.handleAddNode)
	mux.HandleFunc("PATCH /api/scenes/{id}/signal-chain/nodes/{nodeId}", s.handleUpdateNode)
	mux.HandleFunc("DELETE /api/scenes/{id}/signal-chain/nodes/{nodeId}", s.handleDeleteNode)
	mux.HandleFunc("GET /api/scenes/{id}/signal-chain/nodes/{nodeId}/handles", s.handleNodeHandles)
	mux.HandleFunc("POST /api/scenes/{id}/signal-chain/selection", s.handleSelectNode)
	mux.HandleFunc("POST /api/scenes/{id}/signal-chain/connections", s.handleConnect)
	mux.HandleFunc("POST /api/scenes/{id}/signal-chain/changes", s.handleApplyChanges)
	mux.HandleFunc("POST /api/scenes/{id}/signal-chain/save", s.handleSaveSignalChain)
	mux.HandleFunc("POST /api/scenes/{id}/speakers/prepare", s.handlePrepareSpeakers)

	// Room editor
	mux.HandleFunc("GET /api/scenes/{id}/room", s.handleGetRoom)
	mux.HandleFunc("PUT /api/scenes/{id}/room/dimensions", s.handleSetDimensions)
	mux.HandleFunc("PUT /api/scenes/{id}/room/faces/{face}", s.handleAssignMaterial)
	mux.HandleFunc("DELETE /api/scenes/{id}/room/faces/{face}", s.handleResetFace)
	mux.HandleFunc("PUT /api/scenes/{id}/room/speakers", s.handleSetSpeakers)

	// Simulation
	mux.HandleFunc("POST /api/scenes/{id}/simulate", s.handleSimulate)
	mux.HandleFunc("GET /api/scenes/{id}/runs", s.handleListRuns)

	if s.graphql != nil {
		mux.Handle("POST /graphql", s.graphql)
		mux.Handle("GET /graphql", s.graphql)
	}
}

// metricsHandler refreshes the runtime gauges before each scrape.
func (s *Server) metricsHandler() http.Handler {
	prom := promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metrics.UpdateSystemMetrics()
		if s.bus != nil {
			s.metrics.SetEventsDropped(s.bus.Dropped())
		}
		prom.ServeHTTP(w, r)
	})
}
