package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/starford/enigma/internal/apperr"
	"github.com/starford/enigma/internal/dom"
	"github.com/starford/enigma/internal/enigmaxml"
	"github.com/starford/enigma/internal/integrity"
)

// DumpOptions selects what Dump prints. Negative Staff, Measure or Layer
// means all.
type DumpOptions struct {
	Strict  bool
	Part    int
	Staff   int
	Measure int
	Layer   int
}

// Dump loads the document at path and writes one line per traversed entry.
// Violations go to logger; in strict mode the first one is returned.
func Dump(w io.Writer, path string, o DumpOptions, logger *slog.Logger) error {
	if o.Layer >= dom.MaxLayers {
		return fmt.Errorf("invalid layer index [%d]: %w", o.Layer, apperr.ErrInvalidArgument)
	}
	part, err := dom.ToCmper("part", o.Part)
	if err != nil {
		return err
	}
	if o.Staff >= 0 {
		if _, err := dom.ToCmper("staff", o.Staff); err != nil {
			return err
		}
	}
	if o.Measure >= 0 {
		if _, err := dom.ToCmper("measure", o.Measure); err != nil {
			return err
		}
	}
	chk := &integrity.Checker{Strict: o.Strict, Sink: integrity.LogSink{Logger: logger}}
	doc, err := enigmaxml.LoadFile(path, dom.WithChecker(chk))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAFF\tMEASURE\tLAYER\tENTRY\tKIND\tDURA\tELAPSED\tACTUAL\tEND")
	emit := func(info *dom.EntryInfo) bool {
		kind := "rest"
		if info.Entry.IsNote {
			kind = "note"
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\t%d\t%s\t%s\t%s\n",
			info.Staff, info.Measure, info.Layer, info.Entry.Number(), kind,
			info.Entry.Duration, info.Elapsed, info.Actual, info.End())
		return true
	}

	for _, g := range doc.FrameHolds(part) {
		if (o.Staff >= 0 && int(g.Staff()) != o.Staff) || (o.Measure >= 0 && int(g.Measure()) != o.Measure) {
			continue
		}
		if o.Layer < 0 {
			_, err = g.IterateEntries(emit)
		} else {
			_, err = g.IterateLayer(dom.LayerIndex(o.Layer), emit)
		}
		if err != nil {
			_ = tw.Flush()
			return fmt.Errorf("staff %d measure %d: %w", g.Staff(), g.Measure(), err)
		}
	}
	return tw.Flush()
}

// CheckReport summarizes a document check.
type CheckReport struct {
	Stats      dom.Stats
	Violations []string
}

// Check loads the document at path and traverses every part, collecting
// each consistency violation. Only unreadable input is returned as an error.
func Check(path string) (*CheckReport, error) {
	collector := &integrity.Collector{}
	chk := &integrity.Checker{Sink: collector}

	doc, err := enigmaxml.LoadFile(path, dom.WithChecker(chk))
	if err != nil {
		return nil, err
	}
	for _, part := range doc.PartIDs() {
		_, err := doc.IterateAll(part, func(*dom.EntryInfo) bool { return true })
		if err != nil && !errors.Is(err, apperr.ErrIntegrity) {
			return nil, err
		}
	}
	return &CheckReport{Stats: doc.Stats(), Violations: collector.Messages()}, nil
}
