// Package enigmaxml loads EnigmaXML documents into the dom object model.
//
// Plain, gzip and zstd compressed inputs are accepted; the compression is
// detected from the leading magic bytes.
package enigmaxml

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/starford/enigma/internal/apperr"
	"github.com/starford/enigma/internal/dom"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Compression identifies how a document is stored.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	}
	return "none"
}

// Detect reports the compression of a stream from its first bytes.
func Detect(head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip
	case bytes.HasPrefix(head, zstdMagic):
		return Zstd
	}
	return None
}

// decompress wraps r according to its magic bytes. The returned close
// function releases decoder resources.
func decompress(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if len(head) == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("enigmaxml: empty document: %w", apperr.ErrInvalidArgument)
		}
		return nil, nil, fmt.Errorf("enigmaxml: read: %w", err)
	}
	switch Detect(head) {
	case Gzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("enigmaxml: gzip: %w", err)
		}
		return zr, func() { zr.Close() }, nil
	case Zstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("enigmaxml: zstd: %w", err)
		}
		return dec, dec.Close, nil
	}
	return br, func() {}, nil
}

// Load decodes one document from r. The options configure the resulting
// document (see dom.WithChecker); its integrity checker also governs the
// checks run after decoding, so in strict mode a violation fails the load.
func Load(r io.Reader, opts ...dom.Option) (*dom.Document, error) {
	src, closeFn, err := decompress(r)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var root finaleNode
	if err := xml.NewDecoder(src).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("enigmaxml: empty document: %w", apperr.ErrInvalidArgument)
		}
		return nil, fmt.Errorf("enigmaxml: decode: %w", err)
	}

	doc := dom.NewDocument(opts...)
	if root.Header != nil {
		doc.Header = buildHeader(root.Header)
	}
	for _, n := range root.Entries {
		doc.AddEntry(buildEntry(n))
	}
	for _, n := range root.Others.Frames {
		f := dom.NewFrame(dom.Cmper(n.Part), dom.Cmper(n.Cmper), dom.Inci(n.Inci))
		f.StartEntry = dom.EntryNumber(n.StartEntry)
		f.EndEntry = dom.EntryNumber(n.EndEntry)
		f.StartTime = dom.Edu(n.StartTime)
		doc.AddFrame(f)
	}
	for _, n := range root.Details.FrameHolds {
		doc.AddFrameHold(buildFrameHold(n))
	}
	for _, n := range root.Details.TupletDefs {
		doc.AddTupletDef(buildTupletDef(n))
	}

	if err := doc.IntegrityCheck(); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadFile opens and loads the document at path.
func LoadFile(path string, opts ...dom.Option) (*dom.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("enigmaxml: %s: %w", path, apperr.ErrNotFound)
		}
		return nil, err
	}
	defer f.Close()
	doc, err := Load(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func buildVersion(n versionNode) dom.FinaleVersion {
	return dom.FinaleVersion{
		Major:     n.Major,
		Minor:     n.Minor,
		Maint:     n.Maint,
		DevStatus: n.DevStatus,
		Build:     n.Build,
	}
}

func buildFileInfo(n fileInfoNode) dom.FileInfo {
	return dom.FileInfo{
		Year:          n.Year,
		Month:         n.Month,
		Day:           n.Day,
		ModifiedBy:    n.ModifiedBy,
		EnigmaVersion: buildVersion(n.EnigmaVersion),
		Application:   n.Application,
		Platform:      n.Platform,
		AppVersion:    buildVersion(n.AppVersion),
		FileVersion:   buildVersion(n.FileVersion),
		AppRegion:     n.AppRegion,
	}
}

func buildHeader(n *headerNode) dom.Header {
	return dom.Header{
		WordOrder:    n.WordOrder,
		TextEncoding: n.TextEncoding,
		Created:      buildFileInfo(n.Created),
		Modified:     buildFileInfo(n.Modified),
	}
}

func buildEntry(n entryNode) *dom.Entry {
	e := dom.NewEntry(dom.EntryNumber(n.Entnum), dom.EntryNumber(n.Prev), dom.EntryNumber(n.Next))
	e.Duration = dom.Edu(n.Dura)
	e.NumNotes = n.NumNotes
	e.IsValid = bool(n.IsValid)
	e.IsNote = bool(n.IsNote)
	e.Voice2 = bool(n.Voice2)
	e.ArticDetail = bool(n.ArticDetail)
	e.Beam = bool(n.Beam)
	e.StemDetail = bool(n.StemDetail)
	e.Sorted = bool(n.Sorted)
	e.LyricDetail = bool(n.LyricDetail)
	e.PerformanceData = bool(n.PerformanceData)
	e.SmartShapeDetail = bool(n.SmartShapeDetail)
	e.FreezeBeam = bool(n.FreezeBeam)
	for _, nn := range n.Notes {
		note := dom.NewNote(dom.NoteNumber(nn.ID))
		note.HarmLev = nn.HarmLev
		note.HarmAlt = nn.HarmAlt
		note.IsValid = bool(nn.IsValid)
		note.ShowAcci = bool(nn.ShowAcci)
		e.Notes = append(e.Notes, note)
	}
	return e
}

func buildFrameHold(n gfholdNode) *dom.GFrameHold {
	g := dom.NewGFrameHold(dom.Cmper(n.Part), dom.Cmper(n.Cmper1), dom.Cmper(n.Cmper2))
	if n.ClefID != nil {
		id := dom.ClefIndex(*n.ClefID)
		g.ClefID = &id
	}
	g.ClefListID = dom.Cmper(n.ClefListID)
	g.ShowClefMode = dom.ParseShowClefMode(n.ClefMode)
	g.MirrorFrame = bool(n.MirrorFrame)
	g.ClefPercent = n.ClefPercent
	g.Frames = [dom.MaxLayers]dom.Cmper{
		dom.Cmper(n.Frame1), dom.Cmper(n.Frame2), dom.Cmper(n.Frame3), dom.Cmper(n.Frame4),
	}
	return g
}

func buildTupletDef(n tupletDefNode) *dom.TupletDef {
	t := dom.NewTupletDef(dom.Cmper(n.Part), dom.EntryNumber(n.Entnum), dom.Inci(n.Inci))
	t.DisplayNumber = n.SymbolicNum
	t.DisplayDuration = dom.Edu(n.SymbolicDur)
	t.ReferenceNumber = n.RefNum
	t.ReferenceDuration = dom.Edu(n.RefDur)
	t.AlwaysFlat = bool(n.AlwaysFlat)
	t.FullDura = bool(n.FullDura)
	t.MetricCenter = bool(n.MetricCenter)
	t.AvoidStaff = bool(n.AvoidStaff)
	t.AllowHorz = bool(n.AllowHorz)
	t.IgnoreHorzNumOffset = bool(n.IgnoreHorzNumOffset)
	t.BreakBracket = bool(n.BreakBracket)
	t.MatchHooks = bool(n.MatchHooks)
	t.UseBottomNote = bool(n.UseBottomNote)
	t.SmartTuplet = bool(n.SmartTuplet)
	t.TupOffX = dom.Evpu(n.TupOffX)
	t.TupOffY = dom.Evpu(n.TupOffY)
	t.BrackOffX = dom.Evpu(n.BrackOffX)
	t.BrackOffY = dom.Evpu(n.BrackOffY)
	t.LeftHookLen = dom.Evpu(n.LeftHookLen)
	t.LeftHookExt = dom.Evpu(n.LeftHookExt)
	t.RightHookLen = dom.Evpu(n.RightHookLen)
	t.RightHookExt = dom.Evpu(n.RightHookExt)
	t.ManualSlopeAdj = dom.Evpu(n.ManualSlopeAdj)
	return t
}
