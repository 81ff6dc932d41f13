package dom

import (
	"maps"
	"slices"

	"github.com/starford/enigma/internal/integrity"
)

// Option configures a Document.
type Option func(*Document)

// WithChecker sets the integrity checker used by the document. Without it
// the process-wide integrity.Default() is used.
func WithChecker(c *integrity.Checker) Option {
	return func(d *Document) {
		d.checker = c
	}
}

// Document owns every entity loaded from one file. It is filled by the
// loader through the Add methods and read-only afterwards.
type Document struct {
	Header Header

	entries    map[EntryNumber]*Entry
	frames     Pool[*Frame]
	frameHolds Pool[*GFrameHold]
	tupletDefs Pool[*TupletDef]
	checker    *integrity.Checker
}

// NewDocument returns an empty document.
func NewDocument(opts ...Option) *Document {
	d := &Document{entries: make(map[EntryNumber]*Entry)}
	for _, opt := range opts {
		opt(d)
	}
	if d.checker == nil {
		d.checker = integrity.Default()
	}
	return d
}

// Checker returns the integrity checker in effect for the document.
func (d *Document) Checker() *integrity.Checker {
	if d == nil || d.checker == nil {
		return integrity.Default()
	}
	return d.checker
}

// AddEntry stores e. A later entry with the same number replaces an
// earlier one.
func (d *Document) AddEntry(e *Entry) {
	e.doc = d
	d.entries[e.entnum] = e
}

// AddFrame stores a frame incidence.
func (d *Document) AddFrame(f *Frame) {
	d.frames.Add(OthersKey(f.part, f.cmper), f)
}

// AddFrameHold stores a frame holder.
func (d *Document) AddFrameHold(g *GFrameHold) {
	g.doc = d
	d.frameHolds.Add(DetailsKey(g.part, g.staff, g.measure), g)
}

// AddTupletDef stores a tuplet definition.
func (d *Document) AddTupletDef(t *TupletDef) {
	d.tupletDefs.Add(EntryDetailsKey(t.part, t.entnum), t)
}

// Entry returns the entry numbered n, or nil.
func (d *Document) Entry(n EntryNumber) *Entry {
	return d.entries[n]
}

// EntryCount returns the number of entries in the document.
func (d *Document) EntryCount() int {
	return len(d.entries)
}

// EntryNumbers returns every entry number in ascending order.
func (d *Document) EntryNumbers() []EntryNumber {
	return slices.Sorted(maps.Keys(d.entries))
}

// Frames returns all incidences of frame id cmper in part, in document order.
func (d *Document) Frames(part, cmper Cmper) []*Frame {
	return d.frames.GetArray(OthersKey(part, cmper))
}

// FrameHold returns the frame holder of (staff, measure) in part, or nil.
func (d *Document) FrameHold(part, staff, measure Cmper) *GFrameHold {
	g, _ := d.frameHolds.Get(DetailsKey(part, staff, measure))
	return g
}

// FrameHolds returns every frame holder of part in (staff, measure) order.
func (d *Document) FrameHolds(part Cmper) []*GFrameHold {
	keys := d.frameHolds.Keys(part)
	if len(keys) == 0 && part != ScorePartID {
		keys = d.frameHolds.Keys(ScorePartID)
	}
	out := make([]*GFrameHold, 0, len(keys))
	for _, k := range keys {
		out = append(out, d.frameHolds.GetArray(k)...)
	}
	return out
}

// PartIDs returns the score id followed by every part that has frame
// holders of its own, in ascending order.
func (d *Document) PartIDs() []Cmper {
	ids := []Cmper{ScorePartID}
	for _, k := range d.frameHolds.AllKeys() {
		if k.Part != ids[len(ids)-1] {
			ids = append(ids, k.Part)
		}
	}
	return ids
}

// TupletDefs returns the tuplets that start on entry n, in document order.
// Tuplets are looked up in the score regardless of the part being read.
func (d *Document) TupletDefs(n EntryNumber) []*TupletDef {
	return d.tupletDefs.GetArray(EntryDetailsKey(ScorePartID, n))
}

// Stats summarizes the entity counts of a document.
type Stats struct {
	Entries    int
	Frames     int
	FrameHolds int
	TupletDefs int
}

// Stats returns the entity counts.
func (d *Document) Stats() Stats {
	return Stats{
		Entries:    len(d.entries),
		Frames:     d.frames.Len(),
		FrameHolds: d.frameHolds.Len(),
		TupletDefs: d.tupletDefs.Len(),
	}
}

// IntegrityCheck validates every frame holder and checks that each tuplet
// definition is attached to an existing entry. In lenient mode all
// violations are reported and nil is returned; in strict mode the first
// violation is returned.
func (d *Document) IntegrityCheck() error {
	chk := d.Checker()
	for _, k := range d.frameHolds.AllKeys() {
		for _, g := range d.frameHolds.GetArray(k) {
			if err := g.IntegrityCheck(); err != nil {
				return err
			}
		}
	}
	for _, k := range d.tupletDefs.AllKeys() {
		for _, t := range d.tupletDefs.GetArray(k) {
			if d.Entry(t.entnum) != nil {
				continue
			}
			if err := chk.Report("TupletDef %d refers to entry %d that does not exist.", t.inci, t.entnum); err != nil {
				return err
			}
		}
	}
	return nil
}
