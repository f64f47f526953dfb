// Package graphql exposes a read-only GraphQL view of stored scenes, their run
// history and the equipment catalog.
package graphql

import (
	"errors"
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/catalog"
	"github.com/dd0wney/aspire-acoustics/pkg/room"
	"github.com/dd0wney/aspire-acoustics/pkg/scene"
	"github.com/dd0wney/aspire-acoustics/pkg/signalchain"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

// Config wires the schema's resolvers.
type Config struct {
	Store   scene.Store
	Catalog catalog.Catalog
	Limits  *LimitConfig
}

type resolver struct {
	store   scene.Store
	catalog catalog.Catalog
	limits  LimitConfig
}

// NewSchema builds the query schema.
func NewSchema(cfg Config) (graphql.Schema, error) {
	if cfg.Store == nil || cfg.Catalog == nil {
		return graphql.Schema{}, errors.New("graphql: store and catalog are required")
	}
	res := &resolver{store: cfg.Store, catalog: cfg.Catalog, limits: DefaultLimits()}
	if cfg.Limits != nil {
		if err := ValidateLimitConfig(cfg.Limits); err != nil {
			return graphql.Schema{}, err
		}
		res.limits = *cfg.Limits
	}

	types := buildTypes(res)
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type:    graphql.String,
				Resolve: func(graphql.ResolveParams) (any, error) { return "ok", nil },
			},
			"scene": &graphql.Field{
				Type: types.scene,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: res.scene,
			},
			"scenes": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(types.scene))),
				Args: graphql.FieldConfigArgument{
					"projectId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: res.scenes,
			},
			"catalog": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(types.item))),
				Args: graphql.FieldConfigArgument{
					"kind": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: res.catalogItems,
			},
			"materials": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(types.material))),
				Resolve: res.materials,
			},
			"simulationTypes": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(types.simulationType))),
				Resolve: func(graphql.ResolveParams) (any, error) {
					return simulation.AvailableTypes(), nil
				},
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: query})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

func (r *resolver) scene(p graphql.ResolveParams) (any, error) {
	id, _ := p.Args["id"].(string)
	sc, err := r.store.Get(p.Context, id)
	if errors.Is(err, scene.ErrSceneNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (r *resolver) scenes(p graphql.ResolveParams) (any, error) {
	project, _ := p.Args["projectId"].(string)
	list, err := r.store.List(p.Context, project)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []scene.Scene{}
	}
	return list, nil
}

func (r *resolver) runs(p graphql.ResolveParams) (any, error) {
	sc, ok := p.Source.(scene.Scene)
	if !ok {
		return nil, nil
	}
	limit := -1
	if v, ok := p.Args["limit"].(int); ok {
		limit = v
	}
	limit = applyLimit(limit, &r.limits)
	if limit == 0 {
		return []simulation.Run{}, nil
	}
	runs, err := r.store.Runs(p.Context, sc.ID, limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []simulation.Run{}
	}
	return runs, nil
}

func (r *resolver) catalogItems(p graphql.ResolveParams) (any, error) {
	raw, _ := p.Args["kind"].(string)
	kind, err := catalog.ParseKind(raw)
	if err != nil {
		return nil, err
	}
	items, err := r.catalog.List(p.Context, kind)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []catalog.Item{}
	}
	return items, nil
}

func (r *resolver) materials(p graphql.ResolveParams) (any, error) {
	mats, err := r.catalog.Materials(p.Context)
	if err != nil {
		return nil, err
	}
	if mats == nil {
		mats = []acoustics.Material{}
	}
	return mats, nil
}

// faceEntry is one row of a scene's face table.
type faceEntry struct {
	Face acoustics.Face
	acoustics.FaceMaterial
}

func sceneFaces(sc scene.Scene) []faceEntry {
	fm := acoustics.NewFaceMaterials()
	if sc.GeometryData.Materials != nil {
		fm = *sc.GeometryData.Materials
	}
	out := make([]faceEntry, 0, len(acoustics.AllFaces))
	fm.Each(func(f acoustics.Face, m acoustics.FaceMaterial) {
		out = append(out, faceEntry{Face: f, FaceMaterial: m})
	})
	return out
}

// field is a resolver reading one value off a typed source.
func field[S any](get func(S) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		s, ok := p.Source.(S)
		if !ok {
			return nil, nil
		}
		return get(s), nil
	}
}

type schemaTypes struct {
	scene, item, material, simulationType *graphql.Object
}

func buildTypes(res *resolver) schemaTypes {
	dimensions := graphql.NewObject(graphql.ObjectConfig{
		Name: "Dimensions",
		Fields: graphql.Fields{
			"width":  &graphql.Field{Type: graphql.Float, Resolve: field(func(d acoustics.Dimensions) any { return d.Width })},
			"height": &graphql.Field{Type: graphql.Float, Resolve: field(func(d acoustics.Dimensions) any { return d.Height })},
			"depth":  &graphql.Field{Type: graphql.Float, Resolve: field(func(d acoustics.Dimensions) any { return d.Depth })},
			"volume": &graphql.Field{Type: graphql.Float, Resolve: field(func(d acoustics.Dimensions) any { return d.Volume() })},
		},
	})

	face := graphql.NewObject(graphql.ObjectConfig{
		Name: "FaceMaterial",
		Fields: graphql.Fields{
			"face":                  &graphql.Field{Type: graphql.String, Resolve: field(func(f faceEntry) any { return string(f.Face) })},
			"materialId":            &graphql.Field{Type: graphql.String, Resolve: field(func(f faceEntry) any { return f.MaterialID })},
			"absorptionCoefficient": &graphql.Field{Type: graphql.Float, Resolve: field(func(f faceEntry) any { return f.AbsorptionCoefficient })},
			"isDefault":             &graphql.Field{Type: graphql.Boolean, Resolve: field(func(f faceEntry) any { return f.IsDefault() })},
		},
	})

	node := graphql.NewObject(graphql.ObjectConfig{
		Name: "Node",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.ID, Resolve: field(func(n signalchain.Node) any { return n.ID })},
			"type":      &graphql.Field{Type: graphql.String, Resolve: field(func(n signalchain.Node) any { return string(n.Type) })},
			"label":     &graphql.Field{Type: graphql.String, Resolve: field(func(n signalchain.Node) any { return n.Data.Label })},
			"catalogId": &graphql.Field{Type: graphql.String, Resolve: field(func(n signalchain.Node) any { return n.Data.CatalogID })},
		},
	})

	edge := graphql.NewObject(graphql.ObjectConfig{
		Name: "Edge",
		Fields: graphql.Fields{
			"id":     &graphql.Field{Type: graphql.ID, Resolve: field(func(e signalchain.Edge) any { return e.ID })},
			"source": &graphql.Field{Type: graphql.ID, Resolve: field(func(e signalchain.Edge) any { return e.Source })},
			"target": &graphql.Field{Type: graphql.ID, Resolve: field(func(e signalchain.Edge) any { return e.Target })},
		},
	})

	speaker := graphql.NewObject(graphql.ObjectConfig{
		Name: "Speaker",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.ID, Resolve: field(func(s room.Speaker) any { return s.ID })},
			"name":      &graphql.Field{Type: graphql.String, Resolve: field(func(s room.Speaker) any { return s.Name })},
			"speakerId": &graphql.Field{Type: graphql.String, Resolve: field(func(s room.Speaker) any { return s.SpeakerID })},
			"x":         &graphql.Field{Type: graphql.Float, Resolve: field(func(s room.Speaker) any { return s.Position.X })},
			"y":         &graphql.Field{Type: graphql.Float, Resolve: field(func(s room.Speaker) any { return s.Position.Y })},
			"z":         &graphql.Field{Type: graphql.Float, Resolve: field(func(s room.Speaker) any { return s.Position.Z })},
		},
	})

	run := graphql.NewObject(graphql.ObjectConfig{
		Name: "Run",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.ID, Resolve: field(func(r simulation.Run) any { return r.ID })},
			"simulationType": &graphql.Field{Type: graphql.String, Resolve: field(func(r simulation.Run) any { return string(r.Type) })},
			"status":         &graphql.Field{Type: graphql.String, Resolve: field(func(r simulation.Run) any { return string(r.Status) })},
			"averageRt60": &graphql.Field{Type: graphql.Float, Resolve: field(func(r simulation.Run) any {
				if r.AverageRT60 == nil {
					return nil
				}
				return *r.AverageRT60
			})},
			"classification": &graphql.Field{Type: graphql.String, Resolve: field(func(r simulation.Run) any {
				if r.AverageRT60 == nil {
					return nil
				}
				return simulation.Classify(*r.AverageRT60).Label
			})},
			"error":      &graphql.Field{Type: graphql.String, Resolve: field(func(r simulation.Run) any { return r.Error })},
			"startedAt":  &graphql.Field{Type: graphql.DateTime, Resolve: field(func(r simulation.Run) any { return r.StartedAt })},
			"finishedAt": &graphql.Field{Type: graphql.DateTime, Resolve: field(func(r simulation.Run) any { return r.FinishedAt })},
			"durationMs": &graphql.Field{Type: graphql.Int, Resolve: field(func(r simulation.Run) any { return int(r.Duration().Milliseconds()) })},
		},
	})

	sceneType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Scene",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: field(func(s scene.Scene) any { return s.ID })},
			"projectId":   &graphql.Field{Type: graphql.ID, Resolve: field(func(s scene.Scene) any { return s.ProjectID })},
			"name":        &graphql.Field{Type: graphql.String, Resolve: field(func(s scene.Scene) any { return s.Name })},
			"description": &graphql.Field{Type: graphql.String, Resolve: field(func(s scene.Scene) any { return s.Description })},
			"createdAt":   &graphql.Field{Type: graphql.DateTime, Resolve: field(func(s scene.Scene) any { return s.CreatedAt })},
			"updatedAt":   &graphql.Field{Type: graphql.DateTime, Resolve: field(func(s scene.Scene) any { return s.UpdatedAt })},
			"dimensions": &graphql.Field{Type: dimensions, Resolve: field(func(s scene.Scene) any {
				return s.GeometryData.DimensionsOrDefault()
			})},
			"faces":    &graphql.Field{Type: graphql.NewList(face), Resolve: field(func(s scene.Scene) any { return sceneFaces(s) })},
			"nodes":    &graphql.Field{Type: graphql.NewList(node), Resolve: field(func(s scene.Scene) any { return s.InstrumentSetup.Nodes })},
			"edges":    &graphql.Field{Type: graphql.NewList(edge), Resolve: field(func(s scene.Scene) any { return s.InstrumentSetup.Edges })},
			"speakers": &graphql.Field{Type: graphql.NewList(speaker), Resolve: field(func(s scene.Scene) any { return s.SoundSourceData.Speakers })},
			"runs": &graphql.Field{
				Type: graphql.NewList(run),
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: res.runs,
			},
		},
	})

	item := graphql.NewObject(graphql.ObjectConfig{
		Name: "CatalogItem",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.ID, Resolve: field(func(i catalog.Item) any { return i.ID })},
			"kind":        &graphql.Field{Type: graphql.String, Resolve: field(func(i catalog.Item) any { return string(i.Kind) })},
			"brand":       &graphql.Field{Type: graphql.String, Resolve: field(func(i catalog.Item) any { return i.Brand })},
			"model":       &graphql.Field{Type: graphql.String, Resolve: field(func(i catalog.Item) any { return i.Model })},
			"displayName": &graphql.Field{Type: graphql.String, Resolve: field(func(i catalog.Item) any { return i.DisplayName() })},
			"category":    &graphql.Field{Type: graphql.String, Resolve: field(func(i catalog.Item) any { return i.Category })},
		},
	})

	material := graphql.NewObject(graphql.ObjectConfig{
		Name: "Material",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.ID, Resolve: field(func(m acoustics.Material) any { return m.ID })},
			"name": &graphql.Field{Type: graphql.String, Resolve: field(func(m acoustics.Material) any { return m.Name })},
			"nrc":  &graphql.Field{Type: graphql.Float, Resolve: field(func(m acoustics.Material) any { return m.NRC() })},
		},
	})

	simType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SimulationType",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.ID, Resolve: field(func(t simulation.TypeInfo) any { return string(t.ID) })},
			"name":        &graphql.Field{Type: graphql.String, Resolve: field(func(t simulation.TypeInfo) any { return t.Name })},
			"description": &graphql.Field{Type: graphql.String, Resolve: field(func(t simulation.TypeInfo) any { return t.Description })},
		},
	})

	return schemaTypes{scene: sceneType, item: item, material: material, simulationType: simType}
}
