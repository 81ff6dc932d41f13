package index

import (
	"bytes"
	"errors"
	"log/slog"
	"time"

	"github.com/starford/enigma/internal/apperr"
	"github.com/starford/enigma/internal/checksum"
	"github.com/starford/enigma/internal/dom"
	"github.com/starford/enigma/internal/enigmaxml"
	"github.com/starford/enigma/internal/integrity"
)

// Analysis is the indexable form of one document.
type Analysis struct {
	Document DocumentRow
	Entries  []EntryRow
	Issues   []string
}

// Analyze loads data and traverses every cell of every part. Consistency
// violations are recorded as issues and logged. In strict mode the first
// violation ends the analysis, keeping whatever was traversed before it.
//
// Only errors that make the data unreadable (malformed XML, unsupported
// compression) are returned.
func Analyze(path string, data []byte, strict bool, logger *slog.Logger) (*Analysis, error) {
	collector := &integrity.Collector{}
	chk := &integrity.Checker{
		Strict: strict,
		Sink:   integrity.Multi{collector, integrity.LogSink{Logger: logger.With(slog.String("path", path))}},
	}

	a := &Analysis{Document: DocumentRow{
		Path:      path,
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now().UTC(),
	}}

	doc, err := enigmaxml.Load(bytes.NewReader(data), dom.WithChecker(chk))
	if err != nil {
		if errors.Is(err, apperr.ErrIntegrity) {
			a.Issues = collector.Messages()
			return a, nil
		}
		return nil, err
	}
	a.Document.HeaderVersion = HeaderVersion(doc.Header)
	a.Document.EntryCount = doc.EntryCount()

	var failures []string
	for _, part := range doc.PartIDs() {
		var last EntryRow
		seq := 0
		_, err := doc.IterateAll(part, func(info *dom.EntryInfo) bool {
			row := EntryRow{
				Part:     int(part),
				Staff:    int(info.Staff),
				Measure:  int(info.Measure),
				Layer:    int(info.Layer),
				Entnum:   int32(info.Entry.Number()),
				IsNote:   info.Entry.IsNote,
				Duration: int32(info.Entry.Duration),
				Elapsed:  info.Elapsed,
				Actual:   info.Actual,
			}
			if row.Staff != last.Staff || row.Measure != last.Measure || row.Layer != last.Layer {
				seq = 0
			}
			row.Seq = seq
			seq++
			last = row
			a.Entries = append(a.Entries, row)
			return true
		})
		if err == nil {
			continue
		}
		if !errors.Is(err, apperr.ErrIntegrity) {
			failures = append(failures, err.Error())
		}
		if strict {
			break
		}
	}
	a.Issues = append(collector.Messages(), failures...)
	return a, nil
}

// HeaderVersion returns the application version that last saved the
// document, or the creating version when no modification is recorded.
func HeaderVersion(h dom.Header) string {
	info := h.Modified
	if info.Year == 0 {
		info = h.Created
	}
	if info.Year == 0 && info.AppVersion.Major == 0 {
		return ""
	}
	return info.AppVersion.String()
}
