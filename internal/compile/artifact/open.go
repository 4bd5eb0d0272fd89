package artifact

import (
	"context"
	"fmt"

	"github.com/yungbote/sigcompile/internal/compile/config"
)

// Open builds the store selected by cfg. A disabled configuration yields Nop.
func Open(ctx context.Context, cfg config.ArtifactConfig) (Store, error) {
	switch cfg.Store {
	case "", config.ArtifactStoreNone:
		return Nop(), nil
	case config.ArtifactStoreSQLite:
		return OpenSQLite(cfg.DSN)
	case config.ArtifactStorePostgres:
		return OpenPostgres(cfg.DSN)
	case config.ArtifactStoreRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.TTL.Duration)
	default:
		return nil, fmt.Errorf("unsupported artifact store %q", cfg.Store)
	}
}
