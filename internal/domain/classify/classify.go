// Package classify buckets changed file paths into named change categories
// using configured path-prefix rules.
package classify

import (
	"strings"

	"github.com/Strob0t/TestRelay/internal/domain/trigger"
)

// Rule names a category and the path prefixes that select it.
type Rule struct {
	Name     string   `yaml:"name"`
	Prefixes []string `yaml:"prefixes"`
}

// Rules is an ordered set of category rules. Every rule contributes a key to
// the resulting map, so the downstream workflow always sees the full set of
// category flags.
type Rules []Rule

// Apply classifies the changed paths into a ChangeCategoryMap. A category is
// true when at least one path matches one of its prefixes.
func (rs Rules) Apply(paths []string) trigger.ChangeCategoryMap {
	out := make(trigger.ChangeCategoryMap, len(rs))
	for _, r := range rs {
		out[r.Name] = false
	}
	for _, p := range paths {
		for _, r := range rs {
			if out[r.Name] {
				continue
			}
			for _, prefix := range r.Prefixes {
				if strings.HasPrefix(p, prefix) {
					out[r.Name] = true
					break
				}
			}
		}
	}
	return out
}
