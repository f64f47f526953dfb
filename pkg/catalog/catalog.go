package catalog

import (
	"context"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
)

// Catalog looks up equipment and materials.
type Catalog interface {
	Get(ctx context.Context, kind Kind, id string) (Item, error)
	List(ctx context.Context, kind Kind) ([]Item, error)
	Material(ctx context.Context, id string) (acoustics.Material, error)
	Materials(ctx context.Context) ([]acoustics.Material, error)
}
