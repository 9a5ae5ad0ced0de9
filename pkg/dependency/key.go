package dependency

import (
	"fmt"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/aretw0/weft/pkg/domain"
)

// KeyOf computes the cache identity of invoking def with args.
// Map ordering does not affect the hash.
func KeyOf(def *Definition, args Args) (domain.CacheKey, error) {
	h, err := hashstructure.Hash(map[string]any(args), hashstructure.FormatV2, nil)
	if err != nil {
		return domain.CacheKey{}, fmt.Errorf("hash arguments of %s: %w", def.Name, err)
	}
	return domain.CacheKey{Function: def.Name, ArgsHash: h, Returns: def.Returns}, nil
}
