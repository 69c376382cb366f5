package catalog

import (
	"context"
	"errors"

	"tendermatch/internal"
)

var ErrNotFound = errors.New("product not found")

// PrefilterQuery narrows candidates server-side before scoring. Capacity is
// monthly pages for photocopiers, seats for telecoms/IT, cameras for CCTV.
type PrefilterQuery struct {
	Category      internal.ServiceCategory
	MinCapacity   int                    // product max capacity must reach this
	MaxFloor      int                    // product min capacity must not exceed this
	PaperSize     internal.PaperSize     // photocopier only; empty skips the filter
	Status        internal.ProductStatus // empty means active
	MaxCandidates int
}

// Store is the catalog contract the core consumes. Prefilter ordering is
// unspecified; the match engine imposes its own.
type Store interface {
	Prefilter(ctx context.Context, q PrefilterQuery) ([]internal.Product, error)
	Save(ctx context.Context, p *internal.Product) error
	DeleteByID(ctx context.Context, id string) error
	CountByVendor(ctx context.Context, vendorID string) (int, error)
}
