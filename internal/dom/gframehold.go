package dom

// ShowClefMode controls when the clef of a frame holder is displayed.
type ShowClefMode int

// Show clef modes.
const (
	ShowClefWhenNeeded ShowClefMode = iota // the default, absent from xml
	ShowClefNever                          // xml "hidden"
	ShowClefAlways                         // xml "forced"
)

// String returns the xml spelling of m.
func (m ShowClefMode) String() string {
	switch m {
	case ShowClefNever:
		return "hidden"
	case ShowClefAlways:
		return "forced"
	}
	return "whenNeeded"
}

// ParseShowClefMode maps the xml spelling to a mode. Unknown values map to
// ShowClefWhenNeeded.
func ParseShowClefMode(s string) ShowClefMode {
	switch s {
	case "hidden":
		return ShowClefNever
	case "forced":
		return ShowClefAlways
	}
	return ShowClefWhenNeeded
}

// GFrameHold is the frame holder of one (staff, measure) cell (xml node
// "gfhold"). Each of its layer slots names a Frame id, or 0 for an empty layer.
type GFrameHold struct {
	doc     *Document
	part    Cmper
	staff   Cmper
	measure Cmper

	ClefID       *ClefIndex // set when there is no mid-measure clef change
	ClefListID   Cmper      // set when there are mid-measure clef changes
	ShowClefMode ShowClefMode
	MirrorFrame  bool
	ClefPercent  int
	Frames       [MaxLayers]Cmper
}

// NewGFrameHold returns an empty frame holder for (staff, measure).
func NewGFrameHold(part, staff, measure Cmper) *GFrameHold {
	return &GFrameHold{part: part, staff: staff, measure: measure}
}

// Part returns the part id.
func (g *GFrameHold) Part() Cmper { return g.part }

// Staff returns the staff id (cmper1).
func (g *GFrameHold) Staff() Cmper { return g.staff }

// Measure returns the measure id (cmper2).
func (g *GFrameHold) Measure() Cmper { return g.measure }

// Layers returns the indices of the non-empty layer slots.
func (g *GFrameHold) Layers() []LayerIndex {
	var out []LayerIndex
	for i, f := range g.Frames {
		if f != 0 {
			out = append(out, LayerIndex(i))
		}
	}
	return out
}

// IntegrityCheck reports a frame holder that has both or neither of the clef
// id and the clef list id.
func (g *GFrameHold) IntegrityCheck() error {
	chk := g.doc.Checker()
	hasList := g.ClefListID != 0
	hasClef := g.ClefID != nil
	switch {
	case hasList && hasClef:
		return chk.Report("GFrameHold for staff %d and measure %d has both clef and clef list.", g.staff, g.measure)
	case !hasList && !hasClef:
		return chk.Report("GFrameHold for staff %d and measure %d has neither clef nor clef list.", g.staff, g.measure)
	}
	return nil
}
