// Package dom is the typed, read-only object model of an EnigmaXML document.
//
// Entities are created once by the loader and never mutated afterwards, so
// every read path (lookups, traversal) is safe for concurrent use.
package dom

import (
	"fmt"
	"math"

	"github.com/starford/enigma/internal/apperr"
	"github.com/starford/enigma/internal/fraction"
)

// Key types used by the document.
type (
	// Cmper is an entity key ("comperator"): staff id, measure id, frame id...
	Cmper uint16
	// Inci is the 0-based incidence of an entity that shares a Cmper with others.
	Inci int16
	// Edu is a duration in ticks, 1024 per quarter note.
	Edu int32
	// Evpu is a distance, 288 per inch.
	Evpu int32
	// EntryNumber identifies an Entry.
	EntryNumber int32
	// LayerIndex is a layer within a staff/measure cell (0..MaxLayers-1).
	LayerIndex uint
	// ClefIndex indexes the document's clef definitions.
	ClefIndex int
)

// ToCmper converts a caller-supplied id. Values outside the Cmper range
// are an invalid argument, never wrapped.
func ToCmper(what string, v int) (Cmper, error) {
	if v < 0 || v > math.MaxUint16 {
		return 0, fmt.Errorf("dom: %s id %d out of range: %w", what, v, apperr.ErrInvalidArgument)
	}
	return Cmper(v), nil
}

// ScorePartID is the part id of the full score.
const ScorePartID Cmper = 0

// MaxLayers is the number of layers in a frame holder.
const MaxLayers = 4

// NoteType is a notated (undotted) duration in Edu.
type NoteType Edu

// Note types.
const (
	NoteTypeMaxima  NoteType = 0x8000
	NoteTypeLonga   NoteType = 0x4000
	NoteTypeBreve   NoteType = 0x2000
	NoteTypeWhole   NoteType = 0x1000
	NoteTypeHalf    NoteType = 0x0800
	NoteTypeQuarter NoteType = 0x0400
	NoteType8th     NoteType = 0x0200
	NoteType16th    NoteType = 0x0100
	NoteType32nd    NoteType = 0x0080
	NoteType64th    NoteType = 0x0040
	NoteType128th   NoteType = 0x0020
	NoteType256th   NoteType = 0x0010
	NoteType512th   NoteType = 0x0008
	NoteType1024th  NoteType = 0x0004
	NoteType2048th  NoteType = 0x0002
)

// EduPerWhole is the number of Edu in a whole note.
const EduPerWhole = Edu(NoteTypeWhole)

// EduFraction converts a tick count to a fraction of a whole note.
func EduFraction(edu Edu) fraction.Fraction {
	return fraction.MustNew(int64(edu), int64(EduPerWhole))
}
