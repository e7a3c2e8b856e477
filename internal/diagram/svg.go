package diagram

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"strconv"
)

const fontStack = "Inter, 'Helvetica Neue', Arial, sans-serif"

// RenderSVG serialises a scene. The output depends only on the scene.
func RenderSVG(s Scene) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s" font-family="%s" role="img" aria-label="Ikigai diagram">`,
		num(s.Width), num(s.Height), num(s.Width), num(s.Height), fontStack)
	b.WriteByte('\n')
	fmt.Fprintf(&b, `<rect width="100%%" height="100%%" fill="%s"/>`, attr(s.Background))
	b.WriteByte('\n')

	b.WriteString(`<g style="isolation:isolate">`)
	b.WriteByte('\n')
	for _, c := range s.Circles {
		fmt.Fprintf(&b, `<circle data-field="%s" cx="%s" cy="%s" r="%s" fill="%s" fill-opacity="%s" style="mix-blend-mode:%s"/>`,
			attr(string(c.Field)), num(c.CX), num(c.CY), num(c.R), attr(c.Fill), num(s.Opacity), attr(s.Blend))
		b.WriteByte('\n')
	}
	b.WriteString(`</g>`)
	b.WriteByte('\n')

	for _, c := range s.Circles {
		writeText(&b, c.Text)
	}
	for _, z := range s.Zones {
		writeText(&b, z.Text)
	}

	fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%s" fill="%s"/>`,
		num(s.Center.CX), num(s.Center.CY), num(s.Center.R), attr(s.Center.Fill))
	b.WriteByte('\n')
	writeText(&b, s.Center.Title)
	writeText(&b, s.Center.Subtitle)

	for _, c := range s.Captions {
		writeText(&b, c)
	}

	b.WriteString(`</svg>`)
	b.WriteByte('\n')
	return b.Bytes()
}

func writeText(b *bytes.Buffer, t TextBlock) {
	if t.Title == "" && len(t.Lines) == 0 {
		return
	}
	titleY, bodyY := t.lineLayout()

	fmt.Fprintf(b, `<text x="%s" text-anchor="%s" fill="%s">`, num(t.X), attr(t.Anchor), attr(t.Color))
	if t.Title != "" {
		weight := "normal"
		if t.Bold {
			weight = "bold"
		}
		fmt.Fprintf(b, `<tspan x="%s" y="%s" font-size="%s" font-weight="%s">%s</tspan>`,
			num(t.X), num(titleY), num(t.TitleSize), weight, html.EscapeString(t.Title))
	}
	for i, line := range t.Lines {
		fmt.Fprintf(b, `<tspan x="%s" y="%s" font-size="%s" fill="%s">%s</tspan>`,
			num(t.X), num(bodyY[i]), num(t.BodySize), attr(t.bodyColor()), html.EscapeString(line))
	}
	b.WriteString(`</text>`)
	b.WriteByte('\n')
}

// num formats a coordinate to at most two decimals.
func num(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

func attr(s string) string {
	return html.EscapeString(s)
}
