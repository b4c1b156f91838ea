// Package names answers autocomplete queries over the catalog's player names.
package names

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/DoyleJ11/playerid-backend/internal/catalog"
)

// DefaultLimit is how many suggestions the guess box shows.
const DefaultLimit = 6

type entry struct {
	name   string
	folded string
}

// Index is built once and is safe for concurrent reads.
type Index struct {
	byName  map[string]catalog.Player
	entries []entry
}

// Build indexes players by display name. When two players share a name the
// first one in catalog order wins and the later one is not suggested.
func Build(players []catalog.Player) *Index {
	idx := &Index{
		byName:  make(map[string]catalog.Player, len(players)),
		entries: make([]entry, 0, len(players)),
	}
	for _, p := range players {
		if _, dup := idx.byName[p.Name]; dup {
			continue
		}
		idx.byName[p.Name] = p
		idx.entries = append(idx.entries, entry{name: p.Name, folded: Fold(p.Name)})
	}
	return idx
}

// Fold is the case folding used for matching. A Caser is not safe for
// concurrent use, so each call gets its own.
func Fold(s string) string {
	return cases.Fold().String(s)
}

func (idx *Index) Lookup(name string) (catalog.Player, bool) {
	p, ok := idx.byName[name]
	return p, ok
}

func (idx *Index) Len() int { return len(idx.entries) }

// Suggest returns up to limit names containing query, ignoring case, in
// catalog order. An empty query suggests nothing.
func (idx *Index) Suggest(query string, limit int) []string {
	if query == "" || limit <= 0 {
		return []string{}
	}
	q := Fold(query)
	out := make([]string, 0, min(limit, len(idx.entries)))
	for _, e := range idx.entries {
		if strings.Contains(e.folded, q) {
			out = append(out, e.name)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
