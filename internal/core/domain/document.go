package domain

import "math"

type DocumentType string

const (
	TypeForm1040        DocumentType = "1040"
	TypeFormW2          DocumentType = "W2"
	TypeForm1099        DocumentType = "1099"
	TypeForm1098        DocumentType = "1098"
	TypeIDCard          DocumentType = "ID Card"
	TypeHandwrittenNote DocumentType = "Handwritten note"
	TypeOther           DocumentType = "OTHER"
)

// SupportedTypes lists every category a document can end up in.
func SupportedTypes() []DocumentType {
	return []DocumentType{
		TypeForm1040,
		TypeFormW2,
		TypeForm1099,
		TypeForm1098,
		TypeIDCard,
		TypeHandwrittenNote,
		TypeOther,
	}
}

func (t DocumentType) IsTaxForm() bool {
	switch t {
	case TypeForm1040, TypeFormW2, TypeForm1099, TypeForm1098:
		return true
	default:
		return false
	}
}

// Document is an uploaded file held in memory for a single classification.
type Document struct {
	Filename string
	Content  []byte
}

func (d Document) Size() int64 {
	return int64(len(d.Content))
}

// SizeMB is the size in megabytes rounded to two decimals.
func (d Document) SizeMB() float64 {
	return math.Round(float64(len(d.Content))/(1024*1024)*100) / 100
}

// BBox uses PDF points with a top-left origin.
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b BBox) Right() float64  { return b.X + b.Width }
func (b BBox) Bottom() float64 { return b.Y + b.Height }

// Distance is the shortest euclidean gap between two boxes, zero when they overlap.
func (b BBox) Distance(o BBox) float64 {
	dx := math.Max(0, math.Max(o.X-b.Right(), b.X-o.Right()))
	dy := math.Max(0, math.Max(o.Y-b.Bottom(), b.Y-o.Bottom()))
	return math.Hypot(dx, dy)
}

type TextRun struct {
	Text     string  `json:"text"`
	FontName string  `json:"font_name"`
	FontSize float64 `json:"font_size"`
	Page     int     `json:"page"`
	Box      BBox    `json:"bbox"`
}

// PageImage is a rasterized page handed to vision services.
type PageImage struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}
