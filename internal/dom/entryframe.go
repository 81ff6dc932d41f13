package dom

import (
	"iter"
	"slices"

	"github.com/starford/enigma/internal/fraction"
)

// EntryFrame is the realized traversal of one layer of a frame holder.
type EntryFrame struct {
	staff   Cmper
	measure Cmper
	layer   LayerIndex
	entries []*EntryInfo
}

// CreateEntryFrame traverses layer and returns its entries. It returns nil
// when the layer slot is empty.
func (g *GFrameHold) CreateEntryFrame(layer LayerIndex) (*EntryFrame, error) {
	if layer < MaxLayers && g.Frames[layer] == 0 {
		return nil, nil
	}
	ef := &EntryFrame{staff: g.staff, measure: g.measure, layer: layer}
	if _, err := g.IterateLayer(layer, func(info *EntryInfo) bool {
		ef.entries = append(ef.entries, info)
		return true
	}); err != nil {
		return nil, err
	}
	return ef, nil
}

// Staff returns the staff id.
func (f *EntryFrame) Staff() Cmper { return f.staff }

// Measure returns the measure id.
func (f *EntryFrame) Measure() Cmper { return f.measure }

// Layer returns the layer index.
func (f *EntryFrame) Layer() LayerIndex { return f.layer }

// Len returns the number of entries.
func (f *EntryFrame) Len() int { return len(f.entries) }

// Entries returns a copy of the entries in traversal order.
func (f *EntryFrame) Entries() []*EntryInfo {
	return slices.Clone(f.entries)
}

// All yields the entries in traversal order.
func (f *EntryFrame) All() iter.Seq[*EntryInfo] {
	return slices.Values(f.entries)
}

// Duration returns the end time of the last entry, 0 for an empty frame.
func (f *EntryFrame) Duration() fraction.Fraction {
	if len(f.entries) == 0 {
		return fraction.Zero
	}
	return f.entries[len(f.entries)-1].End()
}
