package dom

import (
	"fmt"

	"github.com/starford/enigma/internal/apperr"
	"github.com/starford/enigma/internal/fraction"
)

// TupletDef is a tuplet starting at an entry (xml node "tupletDef"). It
// states that DisplayNumber notes of DisplayDuration are played in the time
// of ReferenceNumber notes of ReferenceDuration.
type TupletDef struct {
	part   Cmper
	entnum EntryNumber
	inci   Inci

	DisplayNumber     int // xml "symbolicNum"
	DisplayDuration   Edu // xml "symbolicDur"
	ReferenceNumber   int // xml "refNum"
	ReferenceDuration Edu // xml "refDur"

	AlwaysFlat          bool
	FullDura            bool
	MetricCenter        bool
	AvoidStaff          bool
	AllowHorz           bool
	IgnoreHorzNumOffset bool
	BreakBracket        bool
	MatchHooks          bool
	UseBottomNote       bool
	SmartTuplet         bool
	TupOffX             Evpu
	TupOffY             Evpu
	BrackOffX           Evpu
	BrackOffY           Evpu
	LeftHookLen         Evpu
	LeftHookExt         Evpu
	RightHookLen        Evpu
	RightHookExt        Evpu
	ManualSlopeAdj      Evpu
}

// NewTupletDef returns a tuplet attached to entnum.
func NewTupletDef(part Cmper, entnum EntryNumber, inci Inci) *TupletDef {
	return &TupletDef{part: part, entnum: entnum, inci: inci}
}

// Part returns the part id.
func (t *TupletDef) Part() Cmper { return t.part }

// EntryNumber returns the entry the tuplet starts on.
func (t *TupletDef) EntryNumber() EntryNumber { return t.entnum }

// Inci returns the incidence among tuplets on the same entry.
func (t *TupletDef) Inci() Inci { return t.inci }

// CalcReferenceDuration returns the span the tuplet fills, as a fraction of a
// whole note.
func (t *TupletDef) CalcReferenceDuration() fraction.Fraction {
	return fraction.MustNew(int64(t.ReferenceNumber)*int64(t.ReferenceDuration), int64(EduPerWhole))
}

// CalcDisplayDuration returns the notated span of the tuplet, as a fraction
// of a whole note.
func (t *TupletDef) CalcDisplayDuration() fraction.Fraction {
	return fraction.MustNew(int64(t.DisplayNumber)*int64(t.DisplayDuration), int64(EduPerWhole))
}

// CalcRatio returns reference / display. A zero display span has no ratio.
func (t *TupletDef) CalcRatio() (fraction.Fraction, error) {
	r, err := fraction.New(int64(t.ReferenceNumber)*int64(t.ReferenceDuration), int64(t.DisplayNumber)*int64(t.DisplayDuration))
	if err != nil {
		return fraction.Fraction{}, fmt.Errorf("dom: tuplet on entry %d: %w", t.entnum, err)
	}
	return r, nil
}

// tupletState is a tuplet in effect during a traversal.
type tupletState struct {
	tuplet    *TupletDef
	remaining fraction.Fraction // display-space duration not yet consumed
	ratio     fraction.Fraction
}

func newTupletState(t *TupletDef) (*tupletState, error) {
	ratio, err := t.CalcRatio()
	if err != nil {
		return nil, err
	}
	if ratio.IsZero() {
		return nil, fmt.Errorf("dom: tuplet on entry %d has a zero reference duration: %w", t.entnum, apperr.ErrInvalidArgument)
	}
	return &tupletState{tuplet: t, remaining: t.CalcDisplayDuration(), ratio: ratio}, nil
}

// consume subtracts the display-space equivalent of actual and reports
// whether the tuplet is complete.
func (s *tupletState) consume(actual fraction.Fraction) (bool, error) {
	symbolic, err := actual.Div(s.ratio)
	if err != nil {
		return false, err
	}
	s.remaining = s.remaining.Sub(symbolic)
	return s.remaining.Sign() <= 0, nil
}
