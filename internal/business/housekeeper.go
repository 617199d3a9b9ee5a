package business

import (
	"context"
	"errors"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/Geodev122/cogniflow-sub002/internal/config"
	"github.com/Geodev122/cogniflow-sub002/internal/serviceerr"
)

// HousekeeperMain starts the house keeping jobs
func HousekeeperMain(ctx context.Context, cfg *config.Config) error {
	deps, closeFn, err := initAuthManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialise the auth session manager: %w", err)
	}
	defer closeFn()

	// Start the housekeeper loop
	c := time.Tick(cfg.Housekeeper.Interval)
	for {
		if err := evictOrphanedCacheEntries(ctx, deps); err != nil {
			slogctx.Error(ctx, "Error during profile cache housekeeping", "error", err)
		}

		select {
		case <-c:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}

// evictOrphanedCacheEntries drops cached profiles whose backing row no
// longer exists, so deleted accounts do not linger in the cache for a
// full TTL.
func evictOrphanedCacheEntries(ctx context.Context, deps *managerDeps) error {
	subjects, err := deps.profileCache.CachedSubjects(ctx)
	if err != nil {
		return fmt.Errorf("listing cached subjects: %w", err)
	}

	evicted := 0

	for _, subjectID := range subjects {
		_, err := deps.profileRepo.Get(ctx, subjectID)
		if err == nil {
			continue
		}

		if !errors.Is(err, serviceerr.ErrNotFound) {
			return fmt.Errorf("checking profile %q: %w", subjectID, err)
		}

		if err := deps.profileCache.Evict(ctx, subjectID); err != nil {
			slogctx.Warn(ctx, "Could not evict orphaned cache entry", "subject_id", subjectID, "error", err)
			continue
		}

		evicted++
	}

	slogctx.Info(ctx, "Profile cache housekeeping finished", "cached", len(subjects), "evicted", evicted)

	return nil
}
