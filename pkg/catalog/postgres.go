package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/pgdb"
)

var catalogSchema = []string{
	`CREATE TABLE IF NOT EXISTS catalog_items (
		id TEXT NOT NULL,
		kind TEXT NOT NULL,
		brand TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		specifications JSONB,
		PRIMARY KEY (kind, id)
	)`,
	`CREATE TABLE IF NOT EXISTS acoustic_materials (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		absorption_coefficients JSONB NOT NULL
	)`,
}

// PGCatalog reads the catalog from PostgreSQL.
type PGCatalog struct {
	pool *pgxpool.Pool
}

// NewPGCatalog wraps an open pool and creates the catalog tables.
func NewPGCatalog(ctx context.Context, pool *pgxpool.Pool) (*PGCatalog, error) {
	if err := pgdb.Migrate(ctx, pool, catalogSchema...); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return &PGCatalog{pool: pool}, nil
}

func (c *PGCatalog) Get(ctx context.Context, kind Kind, id string) (Item, error) {
	const q = `SELECT id, kind, brand, model, name, category, specifications
		FROM catalog_items WHERE kind = $1 AND id = $2`
	it, err := scanItem(c.pool.QueryRow(ctx, q, string(kind), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
	}
	if err != nil {
		return Item{}, fmt.Errorf("catalog: get %s %s: %w", kind, id, err)
	}
	return it, nil
}

func (c *PGCatalog) List(ctx context.Context, kind Kind) ([]Item, error) {
	const q = `SELECT id, kind, brand, model, name, category, specifications
		FROM catalog_items WHERE kind = $1 ORDER BY id`
	rows, err := c.pool.Query(ctx, q, string(kind))
	if err != nil {
		return nil, fmt.Errorf("catalog: list %s: %w", kind, err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan %s: %w", kind, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		it   Item
		kind string
		spec []byte
	)
	if err := row.Scan(&it.ID, &kind, &it.Brand, &it.Model, &it.Name, &it.Category, &spec); err != nil {
		return Item{}, err
	}
	it.Kind = Kind(kind)
	if len(spec) > 0 {
		it.Specifications = json.RawMessage(spec)
	}
	return it, nil
}

func (c *PGCatalog) Material(ctx context.Context, id string) (acoustics.Material, error) {
	const q = `SELECT id, name, description, absorption_coefficients FROM acoustic_materials WHERE id = $1`
	mat, err := scanMaterial(c.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return acoustics.Material{}, fmt.Errorf("%w: %q", acoustics.ErrUnknownMaterial, id)
	}
	if err != nil {
		return acoustics.Material{}, fmt.Errorf("catalog: get material %s: %w", id, err)
	}
	return mat, nil
}

func (c *PGCatalog) Materials(ctx context.Context) ([]acoustics.Material, error) {
	rows, err := c.pool.Query(ctx, `SELECT id, name, description, absorption_coefficients FROM acoustic_materials ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list materials: %w", err)
	}
	defer rows.Close()

	var out []acoustics.Material
	for rows.Next() {
		mat, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan material: %w", err)
		}
		out = append(out, mat)
	}
	return out, rows.Err()
}

func scanMaterial(row pgx.Row) (acoustics.Material, error) {
	var (
		mat  acoustics.Material
		coef []byte
	)
	if err := row.Scan(&mat.ID, &mat.Name, &mat.Description, &coef); err != nil {
		return acoustics.Material{}, err
	}
	if err := json.Unmarshal(coef, &mat.Coefficients); err != nil {
		return acoustics.Material{}, fmt.Errorf("decode coefficients: %w", err)
	}
	return mat, nil
}

// Seed upserts every item and material held by src.
func (c *PGCatalog) Seed(ctx context.Context, src *Memory) error {
	items, mats := src.Snapshot()
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`INSERT INTO catalog_items (id, kind, brand, model, name, category, specifications)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (kind, id) DO UPDATE SET brand = EXCLUDED.brand, model = EXCLUDED.model,
				name = EXCLUDED.name, category = EXCLUDED.category, specifications = EXCLUDED.specifications`,
			it.ID, string(it.Kind), it.Brand, it.Model, it.Name, it.Category, []byte(it.Specifications))
	}
	for _, mat := range mats {
		coef, err := json.Marshal(mat.Coefficients)
		if err != nil {
			return fmt.Errorf("catalog: encode %s: %w", mat.ID, err)
		}
		batch.Queue(`INSERT INTO acoustic_materials (id, name, description, absorption_coefficients)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
				absorption_coefficients = EXCLUDED.absorption_coefficients`,
			mat.ID, mat.Name, mat.Description, coef)
	}
	if err := c.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("catalog: seed: %w", err)
	}
	return nil
}

// Ping checks the database answers.
func (c *PGCatalog) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }
