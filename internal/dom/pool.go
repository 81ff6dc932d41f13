package dom

import (
	"cmp"
	"maps"
	"slices"
)

// Key addresses a group of entities in a Pool. Cmper2 is zero for entity
// kinds that are keyed by a single comparator. Entry-keyed details use the
// entry number as Cmper1.
type Key struct {
	Part   Cmper
	Cmper1 int
	Cmper2 int
}

// OthersKey is the key of a single-comparator entity.
func OthersKey(part, cmper Cmper) Key {
	return Key{Part: part, Cmper1: int(cmper)}
}

// DetailsKey is the key of a two-comparator entity.
func DetailsKey(part, cmper1, cmper2 Cmper) Key {
	return Key{Part: part, Cmper1: int(cmper1), Cmper2: int(cmper2)}
}

// EntryDetailsKey is the key of an entity attached to an entry.
func EntryDetailsKey(part Cmper, entnum EntryNumber) Key {
	return Key{Part: part, Cmper1: int(entnum)}
}

func compareKeys(a, b Key) int {
	if c := cmp.Compare(a.Part, b.Part); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Cmper1, b.Cmper1); c != 0 {
		return c
	}
	return cmp.Compare(a.Cmper2, b.Cmper2)
}

// Pool stores the entities of one kind. Each key holds the incidences in the
// order they were added, which is document order.
//
// A Pool is filled during load and read-only afterwards.
type Pool[T any] struct {
	items map[Key][]T
	count int
}

// Add appends v to the group at k.
func (p *Pool[T]) Add(k Key, v T) {
	if p.items == nil {
		p.items = make(map[Key][]T)
	}
	p.items[k] = append(p.items[k], v)
	p.count++
}

// GetArray returns every incidence stored at k. When k names a part that has
// no entities of its own, the score's entities are returned, since shared
// entities are stored only once, under the score.
func (p *Pool[T]) GetArray(k Key) []T {
	if vs, ok := p.items[k]; ok {
		return slices.Clone(vs)
	}
	if k.Part != ScorePartID {
		k.Part = ScorePartID
		return slices.Clone(p.items[k])
	}
	return nil
}

// Get returns the first incidence stored at k.
func (p *Pool[T]) Get(k Key) (T, bool) {
	vs := p.GetArray(k)
	if len(vs) == 0 {
		var zero T
		return zero, false
	}
	return vs[0], true
}

// Keys returns the keys for part in ascending (Cmper1, Cmper2) order.
func (p *Pool[T]) Keys(part Cmper) []Key {
	var out []Key
	for k := range p.items {
		if k.Part == part {
			out = append(out, k)
		}
	}
	slices.SortFunc(out, compareKeys)
	return out
}

// AllKeys returns every key in ascending (Part, Cmper1, Cmper2) order.
func (p *Pool[T]) AllKeys() []Key {
	out := slices.Collect(maps.Keys(p.items))
	slices.SortFunc(out, compareKeys)
	return out
}

// Len returns the number of stored entities, counting every incidence.
func (p *Pool[T]) Len() int {
	return p.count
}
