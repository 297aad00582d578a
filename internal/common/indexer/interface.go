package indexer

import (
	"context"

	"github.com/project-jmr/go-warehouse/internal/domain"
)

// Indexer mirrors loaded offers to a search backend
type Indexer interface {
	// BulkIndex indexes multiple offers at once
	BulkIndex(ctx context.Context, offers []*domain.Offer) error
}
