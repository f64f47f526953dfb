package scene

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/aspire-acoustics/pkg/logging"
	"github.com/dd0wney/aspire-acoustics/pkg/pgdb"
	"github.com/dd0wney/aspire-acoustics/pkg/room"
	"github.com/dd0wney/aspire-acoustics/pkg/signalchain"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

var sceneSchema = []string{
	`CREATE TABLE IF NOT EXISTS scenes (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		instrument_setup JSONB NOT NULL DEFAULT '{}',
		geometry_data JSONB NOT NULL DEFAULT '{}',
		sound_source_data JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS scenes_project_updated_idx ON scenes (project_id, updated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS simulation_runs (
		id TEXT PRIMARY KEY,
		scene_id TEXT NOT NULL REFERENCES scenes(id) ON DELETE CASCADE,
		simulation_type TEXT NOT NULL,
		status TEXT NOT NULL,
		average_rt60 DOUBLE PRECISION,
		classification TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		response JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS simulation_runs_scene_idx ON simulation_runs (scene_id, started_at DESC)`,
}

const sceneColumns = `id, project_id, name, description, instrument_setup, geometry_data,
	sound_source_data, created_at, updated_at`

// PGStore keeps scenes in PostgreSQL, one row per scene with the three
// documents in JSONB columns.
type PGStore struct {
	pool   *pgxpool.Pool
	logger logging.Logger
	now    func() time.Time
}

// NewPGStore wraps an open pool and creates the scene tables.
func NewPGStore(ctx context.Context, pool *pgxpool.Pool, logger logging.Logger) (*PGStore, error) {
	if err := pgdb.Migrate(ctx, pool, sceneSchema...); err != nil {
		return nil, storeErr("migrate", "", err)
	}
	return &PGStore{
		pool:   pool,
		logger: logging.OrNop(logger).With(logging.Component("scene_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *PGStore) Create(ctx context.Context, in CreateInput) (Scene, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return Scene{}, storeErr("create", "", err)
	}
	now := s.now()
	sc := Scene{
		ID:          uuid.NewString(),
		ProjectID:   in.ProjectID,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	const q = `INSERT INTO scenes (id, project_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.pool.Exec(ctx, q, sc.ID, sc.ProjectID, sc.Name, sc.Description, now, now); err != nil {
		return Scene{}, storeErr("create", sc.ID, err)
	}
	return sc, nil
}

func (s *PGStore) Get(ctx context.Context, id string) (Scene, error) {
	q := `SELECT ` + sceneColumns + ` FROM scenes WHERE id = $1`
	sc, err := scanScene(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Scene{}, notFound("get", id)
	}
	if err != nil {
		return Scene{}, storeErr("get", id, err)
	}
	return sc, nil
}

func (s *PGStore) List(ctx context.Context, projectID string) ([]Scene, error) {
	q := `SELECT ` + sceneColumns + ` FROM scenes WHERE project_id = $1 ORDER BY updated_at DESC, id`
	rows, err := s.pool.Query(ctx, q, projectID)
	if err != nil {
		return nil, storeErr("list", "", err)
	}
	defer rows.Close()

	out := make([]Scene, 0)
	for rows.Next() {
		sc, err := scanScene(rows)
		if err != nil {
			return nil, storeErr("list", "", err)
		}
		out = append(out, sc)
	}
	return out, storeErr("list", "", rows.Err())
}

func (s *PGStore) Update(ctx context.Context, id string, patch Patch) (Scene, error) {
	sc, err := s.Get(ctx, id)
	if err != nil {
		return Scene{}, err
	}
	if err := patch.apply(&sc); err != nil {
		return Scene{}, storeErr("update", id, err)
	}
	const q = `UPDATE scenes SET name = $2, description = $3, updated_at = $4 WHERE id = $1`
	return s.exec(ctx, "update", id, q, id, sc.Name, sc.Description, s.now())
}

func (s *PGStore) Duplicate(ctx context.Context, id string) (Scene, error) {
	newID := uuid.NewString()
	now := s.now()
	const q = `INSERT INTO scenes (id, project_id, name, description, instrument_setup,
			geometry_data, sound_source_data, created_at, updated_at)
		SELECT $2, project_id, name || $3, description, instrument_setup,
			geometry_data, sound_source_data, $4, $4
		FROM scenes WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, id, newID, CopySuffix, now)
	if err != nil {
		return Scene{}, storeErr("duplicate", id, err)
	}
	if tag.RowsAffected() == 0 {
		return Scene{}, notFound("duplicate", id)
	}
	return s.Get(ctx, newID)
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM scenes WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("delete", id)
	}
	return nil
}

func (s *PGStore) SaveInstrumentSetup(ctx context.Context, id string, g signalchain.Graph) (Scene, error) {
	now := s.now()
	doc, err := json.Marshal(instrumentSetup(g, now))
	if err != nil {
		return Scene{}, storeErr("save_instrument_setup", id, err)
	}
	const q = `UPDATE scenes SET instrument_setup = $2, updated_at = $3 WHERE id = $1`
	return s.exec(ctx, "save_instrument_setup", id, q, id, doc, now)
}

func (s *PGStore) SaveGeometry(ctx context.Context, id string, geo GeometryData) (Scene, error) {
	if err := validateGeometry(geo); err != nil {
		return Scene{}, storeErr("save_geometry", id, err)
	}
	doc, err := json.Marshal(geo)
	if err != nil {
		return Scene{}, storeErr("save_geometry", id, err)
	}
	const q = `UPDATE scenes SET geometry_data = $2, updated_at = $3 WHERE id = $1`
	return s.exec(ctx, "save_geometry", id, q, id, doc, s.now())
}

func (s *PGStore) SaveSpeakers(ctx context.Context, id string, speakers []room.Speaker) (Scene, error) {
	now := s.now()
	doc, err := json.Marshal(soundSources(speakers, now))
	if err != nil {
		return Scene{}, storeErr("save_speakers", id, err)
	}
	const q = `UPDATE scenes SET sound_source_data = $2, updated_at = $3 WHERE id = $1`
	return s.exec(ctx, "save_speakers", id, q, id, doc, now)
}

// exec runs a single-row update and returns the scene as stored afterwards.
func (s *PGStore) exec(ctx context.Context, op, id, q string, args ...any) (Scene, error) {
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return Scene{}, storeErr(op, id, err)
	}
	if tag.RowsAffected() == 0 {
		return Scene{}, notFound(op, id)
	}
	return s.Get(ctx, id)
}

func (s *PGStore) RecordRun(ctx context.Context, run simulation.Run) error {
	var resp []byte
	if run.Response != nil {
		b, err := json.Marshal(run.Response)
		if err != nil {
			return storeErr("record_run", run.SceneID, err)
		}
		resp = b
	}
	const q = `INSERT INTO simulation_runs (id, scene_id, simulation_type, status, average_rt60,
			classification, error, started_at, finished_at, response)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.pool.Exec(ctx, q, run.ID, run.SceneID, string(run.Type), string(run.Status),
		run.AverageRT60, string(run.Classification), run.Error, run.StartedAt, run.FinishedAt, resp)
	if err != nil {
		s.logger.Warn("run insert failed", logging.SceneID(run.SceneID), logging.RunID(run.ID), logging.Error(err))
		return storeErr("record_run", run.SceneID, err)
	}
	return nil
}

func (s *PGStore) Runs(ctx context.Context, sceneID string, limit int) ([]simulation.Run, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	if _, err := s.Get(ctx, sceneID); err != nil {
		return nil, err
	}
	const q = `SELECT id, scene_id, simulation_type, status, average_rt60, classification, error,
			started_at, finished_at, response
		FROM simulation_runs WHERE scene_id = $1 ORDER BY started_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, q, sceneID, limit)
	if err != nil {
		return nil, storeErr("runs", sceneID, err)
	}
	defer rows.Close()

	out := make([]simulation.Run, 0)
	for rows.Next() {
		var (
			run            simulation.Run
			typ, status    string
			classification string
			resp           []byte
		)
		if err := rows.Scan(&run.ID, &run.SceneID, &typ, &status, &run.AverageRT60,
			&classification, &run.Error, &run.StartedAt, &run.FinishedAt, &resp); err != nil {
			return nil, storeErr("runs", sceneID, err)
		}
		run.Type = simulation.Type(typ)
		run.Status = simulation.RunStatus(status)
		run.Classification = simulation.CategoryID(classification)
		if len(resp) > 0 {
			var r simulation.EngineResponse
			if err := json.Unmarshal(resp, &r); err != nil {
				return nil, storeErr("runs", sceneID, fmt.Errorf("decode response of run %s: %w", run.ID, err))
			}
			run.Response = &r
		}
		out = append(out, run)
	}
	return out, storeErr("runs", sceneID, rows.Err())
}

func (s *PGStore) Ping(ctx context.Context) error {
	return storeErr("ping", "", s.pool.Ping(ctx))
}

// Close is a no-op; the pool belongs to the caller.
func (s *PGStore) Close() error { return nil }

func scanScene(row pgx.Row) (Scene, error) {
	var (
		sc                   Scene
		setup, geo, speakers []byte
	)
	if err := row.Scan(&sc.ID, &sc.ProjectID, &sc.Name, &sc.Description,
		&setup, &geo, &speakers, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
		return Scene{}, err
	}
	if err := decodeDocument(setup, &sc.InstrumentSetup); err != nil {
		return Scene{}, fmt.Errorf("instrument_setup: %w", err)
	}
	if err := decodeDocument(geo, &sc.GeometryData); err != nil {
		return Scene{}, fmt.Errorf("geometry_data: %w", err)
	}
	if err := decodeDocument(speakers, &sc.SoundSourceData); err != nil {
		return Scene{}, fmt.Errorf("sound_source_data: %w", err)
	}
	sc.CreatedAt = sc.CreatedAt.UTC()
	sc.UpdatedAt = sc.UpdatedAt.UTC()
	return sc, nil
}

func decodeDocument(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}
