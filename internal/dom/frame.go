package dom

// Frame is one incidence of a frame id (xml node "frameSpec"). Together the
// incidences of an id bound the entries of one layer of one measure: the
// incidence carrying StartEntry starts the range, which ends at EndEntry.
type Frame struct {
	part  Cmper
	cmper Cmper
	inci  Inci

	StartEntry EntryNumber
	EndEntry   EntryNumber
	// StartTime is a pre-roll in Edu, used by legacy pickup measures.
	StartTime Edu
}

// NewFrame returns a frame incidence.
func NewFrame(part, cmper Cmper, inci Inci) *Frame {
	return &Frame{part: part, cmper: cmper, inci: inci}
}

// Part returns the part id the frame belongs to.
func (f *Frame) Part() Cmper { return f.part }

// Cmper returns the frame id.
func (f *Frame) Cmper() Cmper { return f.cmper }

// Inci returns the incidence.
func (f *Frame) Inci() Inci { return f.inci }
