package normalizer

import (
	"fmt"
	"strings"

	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
	"github.com/baditaflorin/go_record_linkage/internal/ports"
)

// ForName returns the normalizer registered under name. "none" and the empty
// string select no normalizer (nil); unknown names are an error.
func ForName(name string) (ports.Normalizer, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "default":
		return NewDefaultNormalizer(), nil
	case "name":
		return NewNameNormalizer(), nil
	default:
		return nil, fmt.Errorf("unknown normalizer %q (expected \"none\", \"default\" or \"name\")", name)
	}
}

// Apply rewrites every scalar field and array token of records through n,
// in place. Array tokens are re-split on whitespace after normalization, so
// a token may expand into several or normalize away entirely.
func Apply(n ports.Normalizer, records []domain.Record) {
	for i := range records {
		for k, v := range records[i].Fields {
			records[i].Fields[k] = n.Normalize(v)
		}
		for k, vs := range records[i].Arrays {
			out := make([]string, 0, len(vs))
			for _, v := range vs {
				out = append(out, strings.Fields(n.Normalize(v))...)
			}
			records[i].Arrays[k] = out
		}
	}
}
