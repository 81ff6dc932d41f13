package dom

import (
	"fmt"
	"iter"

	"github.com/starford/enigma/internal/apperr"
	"github.com/starford/enigma/internal/fraction"
)

// EntryInfo is an entry as seen from one layer of a frame holder during a
// traversal. It is valid after the callback returns.
type EntryInfo struct {
	Staff   Cmper
	Measure Cmper
	Layer   LayerIndex
	Entry   *Entry
	// Elapsed is the actual time from the start of the cell, including any
	// pre-roll carried by the frame.
	Elapsed fraction.Fraction
	// Actual is the nominal duration scaled by every active tuplet.
	Actual fraction.Fraction
}

// End returns the time at which the entry ends.
func (i *EntryInfo) End() fraction.Fraction {
	return i.Elapsed.Add(i.Actual)
}

// EntryFunc receives one entry of a traversal and returns false to stop.
type EntryFunc func(info *EntryInfo) bool

// IterateLayer walks the entries of one layer in chain order, calling fn for
// each. It returns false if fn stopped the traversal.
//
// An empty layer yields nothing and returns true. Consistency violations
// (a frame without a start entry, a missing start entry, a chain that ends
// before the frame's end entry) stop the traversal; in lenient mode they are
// reported and IterateLayer returns true, in strict mode the violation is
// returned. A layer index outside the frame holder is an invalid argument.
func (g *GFrameHold) IterateLayer(layer LayerIndex, fn EntryFunc) (bool, error) {
	if layer >= MaxLayers {
		return false, fmt.Errorf("dom: invalid layer index [%d]: %w", layer, apperr.ErrInvalidArgument)
	}
	frameID := g.Frames[layer]
	if frameID == 0 {
		return true, nil
	}
	doc := g.doc
	chk := doc.Checker()

	incis := doc.Frames(g.part, frameID)
	var frame *Frame
	for _, f := range incis {
		if f.StartEntry != 0 {
			frame = f
			break
		}
	}
	if frame == nil {
		return stopOn(chk.Report("GFrameHold for staff %d and measure %d points to non-existent frame [%d]", g.staff, g.measure, frameID))
	}
	entry := doc.Entry(frame.StartEntry)
	if entry == nil {
		return stopOn(chk.Report("GFrameHold for staff %d and measure %d is not iterable.", g.staff, g.measure))
	}

	elapsed := fraction.Zero
	for _, f := range incis {
		elapsed = elapsed.Add(EduFraction(f.StartTime))
	}

	var active []*tupletState
	limit := doc.EntryCount()
	for steps := 1; ; steps++ {
		if steps > limit {
			return stopOn(chk.Report("Entry chain of frame %d for staff %d and measure %d does not reach end entry %d.",
				frameID, g.staff, g.measure, frame.EndEntry))
		}
		for _, t := range doc.TupletDefs(entry.entnum) {
			st, err := newTupletState(t)
			if err != nil {
				return false, err
			}
			active = append(active, st)
		}

		// Running clef and key would be computed here, before emission.
		ratio := fraction.One
		for _, t := range active {
			ratio = ratio.Mul(t.ratio)
		}
		actual := entry.Fraction().Mul(ratio)

		info := &EntryInfo{
			Staff:   g.staff,
			Measure: g.measure,
			Layer:   layer,
			Entry:   entry,
			Elapsed: elapsed,
			Actual:  actual,
		}
		if !fn(info) {
			return false, nil
		}
		if entry.entnum == frame.EndEntry {
			return true, nil
		}

		elapsed = elapsed.Add(actual)
		remaining := active[:0]
		for _, t := range active {
			done, err := t.consume(actual)
			if err != nil {
				return false, err
			}
			if !done {
				remaining = append(remaining, t)
			}
		}
		active = remaining

		next, err := entry.Next()
		if err != nil {
			return false, err
		}
		if next == nil {
			if entry.NextNumber() != 0 {
				// Next already reported the dangling link.
				return true, nil
			}
			return stopOn(chk.Report("Entry chain of frame %d for staff %d and measure %d ended at entry %d before end entry %d.",
				frameID, g.staff, g.measure, entry.entnum, frame.EndEntry))
		}
		entry = next
	}
}

// stopOn ends a traversal after a violation: strict mode returns the error,
// lenient mode continues with the next layer.
func stopOn(err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return true, nil
}

// IterateEntries walks layers 0 through MaxLayers-1 in order and returns
// false as soon as fn stops a layer.
func (g *GFrameHold) IterateEntries(fn EntryFunc) (bool, error) {
	for layer := LayerIndex(0); layer < MaxLayers; layer++ {
		ok, err := g.IterateLayer(layer, fn)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Entries returns a pull-based sequence over one layer. A traversal error is
// yielded as the final pair with a nil EntryInfo.
func (g *GFrameHold) Entries(layer LayerIndex) iter.Seq2[*EntryInfo, error] {
	return func(yield func(*EntryInfo, error) bool) {
		stopped := false
		_, err := g.IterateLayer(layer, func(info *EntryInfo) bool {
			if !yield(info, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(nil, err)
		}
	}
}

// IterateAll walks every frame holder of part in (staff, measure) order.
func (d *Document) IterateAll(part Cmper, fn EntryFunc) (bool, error) {
	for _, g := range d.FrameHolds(part) {
		ok, err := g.IterateEntries(fn)
		if err != nil {
			return false, fmt.Errorf("staff %d measure %d: %w", g.staff, g.measure, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
