package session

import (
	"math/rand/v2"

	"github.com/DoyleJ11/playerid-backend/internal/catalog"
)

// deck draws uniformly from a pool without showing anyone twice until the
// pool runs out.
type deck struct {
	rng  *rand.Rand
	seen map[string]bool
	last string
}

func newDeck(rng *rand.Rand) *deck {
	return &deck{rng: rng, seen: make(map[string]bool)}
}

func (d *deck) reset() {
	clear(d.seen)
	d.last = ""
}

// draw returns nil only for an empty pool.
func (d *deck) draw(pool []catalog.Player) *catalog.Player {
	if len(pool) == 0 {
		return nil
	}
	candidates := d.unseen(pool)
	if len(candidates) == 0 {
		clear(d.seen)
		candidates = d.unseen(pool)
		// Don't repeat the last player straight across a reshuffle.
		if len(candidates) > 1 {
			for i, idx := range candidates {
				if pool[idx].Name == d.last {
					candidates = append(candidates[:i], candidates[i+1:]...)
					break
				}
			}
		}
	}
	p := &pool[candidates[d.rng.IntN(len(candidates))]]
	d.seen[p.Name] = true
	d.last = p.Name
	return p
}

func (d *deck) unseen(pool []catalog.Player) []int {
	out := make([]int, 0, len(pool))
	for i := range pool {
		if !d.seen[pool[i].Name] {
			out = append(out, i)
		}
	}
	return out
}
