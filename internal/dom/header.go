package dom

import "fmt"

// FinaleVersion is a version stamp from the document header.
type FinaleVersion struct {
	Major     int
	Minor     int
	Maint     *int
	DevStatus string
	Build     *int
}

func (v FinaleVersion) String() string {
	s := fmt.Sprintf("%d.%d", v.Major, v.Minor)
	if v.Maint != nil {
		s += fmt.Sprintf(".%d", *v.Maint)
	}
	if v.DevStatus != "" {
		s += " " + v.DevStatus
	}
	if v.Build != nil {
		s += fmt.Sprintf(" (%d)", *v.Build)
	}
	return s
}

// FileInfo describes one save of the document.
type FileInfo struct {
	Year          int
	Month         int
	Day           int
	ModifiedBy    string
	EnigmaVersion FinaleVersion
	Application   string
	Platform      string
	AppVersion    FinaleVersion
	FileVersion   FinaleVersion
	AppRegion     string
}

// Header is the document header.
type Header struct {
	WordOrder    string // "lo-endian" or "hi-endian"
	TextEncoding string
	Created      FileInfo
	Modified     FileInfo
}
