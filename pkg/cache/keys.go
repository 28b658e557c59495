package cache

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Separator delimits cache key segments: {prefix}:{id}:{hash}.
const Separator = ":"

// Key joins segments into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, Separator)
}

// HashOptions produces a short deterministic digest of query options for
// parameterized list/statistics keys. JSON gives stable field order for
// structs and sorted keys for maps, so identical options always hash to
// the same segment.
func HashOptions(v any) string {
	payload, err := json.Marshal(v)
	if err != nil {
		payload = []byte(fmt.Sprintf("%+v", v))
	}
	return strconv.FormatUint(xxhash.Sum64(payload), 16)
}
