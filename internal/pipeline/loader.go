package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/catastroguard/internal/domain"
)

// FanOut delivers every batch to each loader in order. The first failure
// aborts the batch so the pipeline retries it as a whole.
type FanOut []BatchLoader

func (f FanOut) LoadBatch(ctx context.Context, refreshes []domain.Refresh) error {
	for i, l := range f {
		if err := l.LoadBatch(ctx, refreshes); err != nil {
			return fmt.Errorf("loader %d: %w", i, err)
		}
	}
	return nil
}
