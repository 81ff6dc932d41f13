package dom

import (
	"fmt"

	"github.com/starford/enigma/internal/apperr"
	"github.com/starford/enigma/internal/fraction"
)

// Note is a single note of an entry.
type Note struct {
	id NoteNumber

	HarmLev  int // diatonic displacement relative to the tonic
	HarmAlt  int // chromatic alteration relative to the key signature
	IsValid  bool
	ShowAcci bool
}

// NoteNumber identifies a note within its entry. It does not change when the
// notes of a chord are reordered.
type NoteNumber int

// NewNote returns a note with the given id.
func NewNote(id NoteNumber) *Note {
	return &Note{id: id}
}

// ID returns the note id.
func (n *Note) ID() NoteNumber { return n.id }

// Entry is a note or rest in an entry chain. Its neighbors are stored as entry
// numbers and resolved through the document on demand.
type Entry struct {
	doc    *Document
	entnum EntryNumber
	prev   EntryNumber
	next   EntryNumber

	Duration         Edu // nominal duration, tuplets not applied
	NumNotes         int
	IsValid          bool
	IsNote           bool // false for rests
	Voice2           bool
	ArticDetail      bool
	Beam             bool
	StemDetail       bool
	Sorted           bool
	LyricDetail      bool
	PerformanceData  bool
	SmartShapeDetail bool
	FreezeBeam       bool
	Notes            []*Note
}

// NewEntry returns an entry with the given identity and neighbors (0 = none).
func NewEntry(entnum, prev, next EntryNumber) *Entry {
	return &Entry{entnum: entnum, prev: prev, next: next}
}

// Number returns the entry number.
func (e *Entry) Number() EntryNumber { return e.entnum }

// NextNumber returns the stored next entry number, 0 if none.
func (e *Entry) NextNumber() EntryNumber { return e.next }

// PrevNumber returns the stored previous entry number, 0 if none.
func (e *Entry) PrevNumber() EntryNumber { return e.prev }

// Next returns the following entry in the chain, or nil at the end.
// A next reference that does not resolve is a consistency violation; in
// lenient mode it is reported and nil is returned.
func (e *Entry) Next() (*Entry, error) {
	return e.resolve(e.next, "next")
}

// Previous returns the preceding entry in the chain, or nil at the start.
func (e *Entry) Previous() (*Entry, error) {
	return e.resolve(e.prev, "previous")
}

func (e *Entry) resolve(n EntryNumber, which string) (*Entry, error) {
	if n == 0 || e.doc == nil {
		return nil, nil
	}
	if other := e.doc.Entry(n); other != nil {
		return other, nil
	}
	if err := e.doc.Checker().Report("Entry %d has %s entry %d that does not exist.", e.entnum, which, n); err != nil {
		return nil, err
	}
	return nil, nil
}

// Fraction returns the nominal duration as a fraction of a whole note.
func (e *Entry) Fraction() fraction.Fraction {
	return EduFraction(e.Duration)
}

// NoteType returns the undotted note type of the entry's duration, found from
// the duration's most significant bit.
func (e *Entry) NoteType() (NoteType, error) {
	return CalcNoteType(e.Duration)
}

// AugmentationDots returns the number of augmentation dots implied by the
// entry's duration.
func (e *Entry) AugmentationDots() (int, error) {
	return CalcAugmentationDots(e.Duration)
}

// CalcNoteType returns the note type for duration. Durations outside
// (1, 0x10000) are invalid.
func CalcNoteType(duration Edu) (NoteType, error) {
	if duration <= 1 || duration >= 0x10000 {
		return 0, fmt.Errorf("dom: duration %d is out of range for a note type: %w", duration, apperr.ErrInvalidArgument)
	}
	msb := Edu(1)
	for v := duration; v > 1; v >>= 1 {
		msb <<= 1
	}
	return NoteType(msb), nil
}

// CalcAugmentationDots counts the run of set bits directly below the note
// type's bit. Each dot adds half of the previous increment.
func CalcAugmentationDots(duration Edu) (int, error) {
	nt, err := CalcNoteType(duration)
	if err != nil {
		return 0, err
	}
	count := 0
	for bit := Edu(nt) >> 1; bit != 0 && duration&bit != 0; bit >>= 1 {
		count++
	}
	return count, nil
}
