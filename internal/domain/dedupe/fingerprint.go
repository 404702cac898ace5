package dedupe

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/dengue/internal/domain/params"
)

// Fingerprint identifies a run by its full parameter bundle, seed included.
// Two bundles with equal values always share a fingerprint.
func Fingerprint(par params.Parameters) (string, error) {
	raw, err := json.Marshal(par)
	if err != nil {
		return "", fmt.Errorf("fingerprint parameters: %w", err)
	}
	return strconv.FormatUint(xxhash.Sum64(raw), 16), nil
}
