package unitindex

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kailas-cloud/staysearch/internal/db"
)

// Publish writes value under a temporary stage key, then atomically renames
// it onto target. Readers see either the old value or the new one. A crash
// between the two steps leaves only an expiring stage key behind.
func (r *Repo) Publish(ctx context.Context, target string, value []byte) error {
	stage := r.keys.Stage(uuid.NewString())
	if err := r.store.SetWithTTL(ctx, stage, value, r.tempTTL); err != nil {
		return fmt.Errorf("stage %s: %w", target, err)
	}
	tx := db.NewTx().Rename(stage, target).Persist(target)
	if err := r.store.Exec(ctx, tx); err != nil {
		return fmt.Errorf("swap %s: %w", target, err)
	}
	return nil
}
