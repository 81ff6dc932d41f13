package enigmaxml

import "encoding/xml"

// flag is a presence-only element such as <isNote/>.
type flag bool

func (f *flag) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	*f = true
	return d.Skip()
}

type finaleNode struct {
	XMLName xml.Name    `xml:"finale"`
	Header  *headerNode `xml:"header"`
	Entries []entryNode `xml:"entries>entry"`
	Others  othersNode  `xml:"others"`
	Details detailsNode `xml:"details"`
}

type headerNode struct {
	WordOrder    string       `xml:"headerData>wordOrder"`
	TextEncoding string       `xml:"headerData>textEncoding"`
	Created      fileInfoNode `xml:"headerData>created"`
	Modified     fileInfoNode `xml:"headerData>modified"`
}

type fileInfoNode struct {
	Year          int         `xml:"year"`
	Month         int         `xml:"month"`
	Day           int         `xml:"day"`
	ModifiedBy    string      `xml:"modifiedBy"`
	EnigmaVersion versionNode `xml:"enigmaVersion"`
	Application   string      `xml:"application"`
	Platform      string      `xml:"platform"`
	AppVersion    versionNode `xml:"appVersion"`
	FileVersion   versionNode `xml:"fileVersion"`
	AppRegion     string      `xml:"appRegion"`
}

type versionNode struct {
	Major     int    `xml:"major"`
	Minor     int    `xml:"minor"`
	Maint     *int   `xml:"maint"`
	DevStatus string `xml:"devStatus"`
	Build     *int   `xml:"build"`
}

type entryNode struct {
	Entnum           int32      `xml:"entnum,attr"`
	Prev             int32      `xml:"prev,attr"`
	Next             int32      `xml:"next,attr"`
	Dura             int32      `xml:"dura"`
	NumNotes         int        `xml:"numNotes"`
	IsValid          flag       `xml:"isValid"`
	IsNote           flag       `xml:"isNote"`
	Voice2           flag       `xml:"v2"`
	ArticDetail      flag       `xml:"articDetail"`
	Beam             flag       `xml:"beam"`
	StemDetail       flag       `xml:"stemDetail"`
	Sorted           flag       `xml:"sorted"`
	LyricDetail      flag       `xml:"lyricDetail"`
	PerformanceData  flag       `xml:"performanceData"`
	SmartShapeDetail flag       `xml:"smartShapeDetail"`
	FreezeBeam       flag       `xml:"freezeBeam"`
	Notes            []noteNode `xml:"note"`
}

type noteNode struct {
	ID       int  `xml:"id,attr"`
	HarmLev  int  `xml:"harmLev"`
	HarmAlt  int  `xml:"harmAlt"`
	IsValid  flag `xml:"isValid"`
	ShowAcci flag `xml:"showAcci"`
}

// partAttrs are carried by every entity that can differ between the score
// and a linked part.
type partAttrs struct {
	Part   uint16 `xml:"part,attr"`
	Shared bool   `xml:"shared,attr"`
}

type othersNode struct {
	Frames []frameSpecNode `xml:"frameSpec"`
}

type frameSpecNode struct {
	partAttrs
	Cmper      uint16 `xml:"cmper,attr"`
	Inci       int16  `xml:"inci,attr"`
	StartEntry int32  `xml:"startEntry"`
	EndEntry   int32  `xml:"endEntry"`
	StartTime  int32  `xml:"startTime"`
}

type detailsNode struct {
	FrameHolds []gfholdNode    `xml:"gfhold"`
	TupletDefs []tupletDefNode `xml:"tupletDef"`
}

type gfholdNode struct {
	partAttrs
	Cmper1      uint16 `xml:"cmper1,attr"`
	Cmper2      uint16 `xml:"cmper2,attr"`
	ClefID      *int   `xml:"clefID"`
	ClefListID  uint16 `xml:"clefListID"`
	ClefMode    string `xml:"clefMode"`
	MirrorFrame flag   `xml:"mirrorFrame"`
	ClefPercent int    `xml:"clefPercent"`
	Frame1      uint16 `xml:"frame1"`
	Frame2      uint16 `xml:"frame2"`
	Frame3      uint16 `xml:"frame3"`
	Frame4      uint16 `xml:"frame4"`
}

type tupletDefNode struct {
	partAttrs
	Entnum              int32 `xml:"entnum,attr"`
	Inci                int16 `xml:"inci,attr"`
	SymbolicNum         int   `xml:"symbolicNum"`
	SymbolicDur         int32 `xml:"symbolicDur"`
	RefNum              int   `xml:"refNum"`
	RefDur              int32 `xml:"refDur"`
	AlwaysFlat          flag  `xml:"flat"`
	FullDura            flag  `xml:"fullDura"`
	MetricCenter        flag  `xml:"metricCenter"`
	AvoidStaff          flag  `xml:"avoidStaff"`
	AllowHorz           flag  `xml:"allowHorz"`
	IgnoreHorzNumOffset flag  `xml:"ignoreGlOffs"`
	BreakBracket        flag  `xml:"breakBracket"`
	MatchHooks          flag  `xml:"matchHooks"`
	UseBottomNote       flag  `xml:"noteBelow"`
	SmartTuplet         flag  `xml:"smartTuplet"`
	TupOffX             int32 `xml:"tupOffX"`
	TupOffY             int32 `xml:"tupOffY"`
	BrackOffX           int32 `xml:"brackOffX"`
	BrackOffY           int32 `xml:"brackOffY"`
	LeftHookLen         int32 `xml:"leftHookLen"`
	LeftHookExt         int32 `xml:"leftHookExt"`
	RightHookLen        int32 `xml:"rightHookLen"`
	RightHookExt        int32 `xml:"rightHookExt"`
	ManualSlopeAdj      int32 `xml:"slope"`
}
