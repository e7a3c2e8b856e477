package diagram

import (
	"strings"
	"unicode/utf8"

	"github.com/BerylCAtieno/ikigai-coach/internal/models"
)

// Theme selects the background and blend mode.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme defaults anything unknown to light.
func ParseTheme(s string) Theme {
	if strings.EqualFold(strings.TrimSpace(s), string(ThemeDark)) {
		return ThemeDark
	}
	return ThemeLight
}

const (
	side    = 600.0
	padding = 48.0

	// Canvas is the logical width and height of a scene.
	Canvas = side + 2*padding
)

// Font sizes in logical pixels.
const (
	sizeCircleTitle = 16.0
	sizeCircleBody  = 13.0
	sizeZoneTitle   = 14.0
	sizeZoneBody    = 12.0
	sizeCenterTitle = 32.0
	sizeCenterSub   = 12.0
	sizeCaption     = 11.0
	lineHeight      = 1.3
)

// TextBlock is an optional bold title followed by body lines. BodyColor
// falls back to Color.
type TextBlock struct {
	X, Y      float64
	Anchor    string // "middle", "start" or "end"
	Color     string
	BodyColor string
	Title     string
	TitleSize float64
	Bold      bool
	Lines     []string
	BodySize  float64
}

// Circle is one of the four primary regions.
type Circle struct {
	Field  models.Field
	CX, CY float64
	R      float64
	Fill   string
	Text   TextBlock
}

// Zone is one of the four intersection labels.
type Zone struct {
	Field models.Field
	Text  TextBlock
}

// Center is the static synthesis disc.
type Center struct {
	CX, CY, R float64
	Fill      string
	Title     TextBlock
	Subtitle  TextBlock
}

// Scene is the complete, renderer-independent layout of a diagram.
type Scene struct {
	Width, Height float64
	Theme         Theme
	Background    string
	Blend         string
	Opacity       float64
	Circles       []Circle
	Zones         []Zone
	Center        Center
	Captions      []TextBlock
}

type themeColors struct {
	background string
	blend      string
	opacity    float64
	body       string
	circleText string
	centerFill string
	centerText string
	centerSub  string
	caption    string
	zoneTitle  map[models.Field]string
}

var themes = map[Theme]themeColors{
	ThemeLight: {
		background: "#ffffff",
		blend:      "multiply",
		opacity:    0.8,
		body:       "#111827",
		circleText: "#ffffff",
		centerFill: "#ffffff",
		centerText: "#4f46e5",
		centerSub:  "#4b5563",
		caption:    "#6b7280",
		zoneTitle: map[models.Field]string{
			models.FieldPassion:    "#075985",
			models.FieldMission:    "#1e40af",
			models.FieldProfession: "#3730a3",
			models.FieldVocation:   "#6b21a8",
		},
	},
	ThemeDark: {
		background: "#1f2937",
		blend:      "lighten",
		opacity:    0.7,
		body:       "#f3f4f6",
		circleText: "#ffffff",
		centerFill: "#1f2937",
		centerText: "#818cf8",
		centerSub:  "#d1d5db",
		caption:    "#9ca3af",
		zoneTitle: map[models.Field]string{
			models.FieldPassion:    "#7dd3fc",
			models.FieldMission:    "#93c5fd",
			models.FieldProfession: "#a5b4fc",
			models.FieldVocation:   "#d8b4fe",
		},
	},
}

// circle placement as fractions of the side: centre and the direction the
// text block is pushed away from the middle.
var circlePlacement = []struct {
	field  models.Field
	cx, cy float64
	dx, dy float64
	title  string
}{
	{models.FieldLove, 0.50, 0.28, 0, -0.07, "What you love"},
	{models.FieldWorldNeeds, 0.72, 0.50, 0.07, 0, "What the world needs"},
	{models.FieldPaidFor, 0.50, 0.72, 0, 0.07, "What you can be paid for"},
	{models.FieldGoodAt, 0.28, 0.50, -0.07, 0, "What you are good at"},
}

var zonePlacement = []struct {
	field  models.Field
	cx, cy float64
}{
	{models.FieldMission, 0.75, 0.25},
	{models.FieldPassion, 0.25, 0.25},
	{models.FieldProfession, 0.25, 0.75},
	{models.FieldVocation, 0.75, 0.75},
}

var captionPlacement = []struct {
	text   string
	x, y   float64
	anchor string
}{
	{"Satisfaction, but a feeling of uselessness", 0, -0.04, "start"},
	{"Delight and fullness, but no wealth", 1, -0.04, "end"},
	{"Comfortable, but a feeling of emptiness", 0, 1.02, "start"},
	{"Excitement, but a sense of uncertainty", 1, 1.02, "end"},
}

// Compose lays out rec on the fixed geometry. It is a pure function of its
// arguments.
func Compose(rec models.IkigaiRecord, colors models.ColorAssignment, theme Theme) Scene {
	tc, ok := themes[theme]
	if !ok {
		theme, tc = ThemeLight, themes[ThemeLight]
	}

	at := func(f float64) float64 { return padding + f*side }

	s := Scene{
		Width:      Canvas,
		Height:     Canvas,
		Theme:      theme,
		Background: tc.background,
		Blend:      tc.blend,
		Opacity:    tc.opacity,
	}

	for _, p := range circlePlacement {
		s.Circles = append(s.Circles, Circle{
			Field: p.field,
			CX:    at(p.cx),
			CY:    at(p.cy),
			R:     0.28 * side,
			Fill:  colors.Color(p.field),
			Text: TextBlock{
				X:         at(p.cx + p.dx),
				Y:         at(p.cy + p.dy),
				Anchor:    "middle",
				Color:     tc.circleText,
				Title:     p.title,
				TitleSize: sizeCircleTitle,
				Bold:      true,
				Lines:     wrap(rec.Get(p.field), 22, 4),
				BodySize:  sizeCircleBody,
			},
		})
	}

	for _, p := range zonePlacement {
		s.Zones = append(s.Zones, Zone{
			Field: p.field,
			Text: TextBlock{
				X:         at(p.cx),
				Y:         at(p.cy),
				Anchor:    "middle",
				Color:     tc.zoneTitle[p.field],
				BodyColor: tc.body,
				Title:     p.field.Label(),
				TitleSize: sizeZoneTitle,
				Bold:      true,
				Lines:     wrap(rec.Get(p.field), 15, 4),
				BodySize:  sizeZoneBody,
			},
		})
	}

	s.Center = Center{
		CX:   at(0.5),
		CY:   at(0.5),
		R:    0.15 * side,
		Fill: tc.centerFill,
		Title: TextBlock{
			X: at(0.5), Y: at(0.5) - 4, Anchor: "middle",
			Color: tc.centerText, Title: "Ikigai", TitleSize: sizeCenterTitle, Bold: true,
		},
		Subtitle: TextBlock{
			X: at(0.5), Y: at(0.5) + 22, Anchor: "middle",
			Color: tc.centerSub, Title: "A reason for being", TitleSize: sizeCenterSub,
		},
	}

	for _, p := range captionPlacement {
		s.Captions = append(s.Captions, TextBlock{
			X:        at(p.x),
			Y:        at(p.y),
			Anchor:   p.anchor,
			Color:    tc.caption,
			Lines:    []string{p.text},
			BodySize: sizeCaption,
		})
	}

	return s
}

// wrap breaks text into at most maxLines lines of about width runes,
// splitting overlong words and ending a truncated block with an ellipsis.
func wrap(text string, width, maxLines int) []string {
	words := strings.Fields(text)
	var lines []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
		}
	}

	for _, w := range words {
		for utf8.RuneCountInString(w) > width {
			flush()
			r := []rune(w)
			lines = append(lines, string(r[:width]))
			w = string(r[width:])
		}
		switch {
		case cur.Len() == 0:
			cur.WriteString(w)
		case utf8.RuneCountInString(cur.String())+1+utf8.RuneCountInString(w) <= width:
			cur.WriteByte(' ')
			cur.WriteString(w)
		default:
			flush()
			cur.WriteString(w)
		}
	}
	flush()

	if len(lines) > maxLines {
		lines = lines[:maxLines]
		last := []rune(lines[maxLines-1])
		if len(last) >= width {
			last = last[:width-1]
		}
		lines[maxLines-1] = string(last) + "…"
	}
	return lines
}

func (t TextBlock) bodyColor() string {
	if t.BodyColor != "" {
		return t.BodyColor
	}
	return t.Color
}

// lineLayout returns the baseline of the title (if any) and of each body
// line, vertically centred on t.Y.
func (t TextBlock) lineLayout() (titleY float64, bodyY []float64) {
	total := 0.0
	if t.Title != "" {
		total += t.TitleSize * lineHeight
	}
	total += float64(len(t.Lines)) * t.BodySize * lineHeight

	y := t.Y - total/2
	if t.Title != "" {
		y += t.TitleSize * lineHeight
		titleY = y - t.TitleSize*(lineHeight-1)
	}
	for range t.Lines {
		y += t.BodySize * lineHeight
		bodyY = append(bodyY, y-t.BodySize*(lineHeight-1))
	}
	return titleY, bodyY
}
