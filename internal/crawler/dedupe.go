package crawler

import (
	"iter"

	"github.com/samvad-hq/samvad-notice-harvester/internal/domain"
)

// Dedupe drops notices whose link was already seen earlier in the same pass.
// The first occurrence wins; later ones are dropped without comparing other fields.
func Dedupe(seq iter.Seq[domain.Notice]) iter.Seq[domain.Notice] {
	return func(yield func(domain.Notice) bool) {
		seen := make(map[string]struct{})
		for n := range seq {
			if _, dup := seen[n.Link]; dup {
				continue
			}
			seen[n.Link] = struct{}{}
			if !yield(n) {
				return
			}
		}
	}
}
