package budgetgate

import (
	"fmt"

	"github.com/minus-twelve/budgetgate/storage"
	"github.com/minus-twelve/budgetgate/types"
)

func CreateLimiter(cfg types.Config) (Limiter, error) {
	switch cfg.StoreType {
	case "", "memory":
		return storage.NewMemoryLimiter(cfg.Security.LoginRate), nil
	case "redis":
		return storage.NewRedisLimiter(cfg.Redis, cfg.Security.LoginRate)
	default:
		return nil, &ConfigurationError{Field: "store_type", Reason: fmt.Sprintf("unknown value %q", cfg.StoreType)}
	}
}
