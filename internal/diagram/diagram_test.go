package diagram

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BerylCAtieno/ikigai-coach/internal/apperr"
	"github.com/BerylCAtieno/ikigai-coach/internal/metrics"
	"github.com/BerylCAtieno/ikigai-coach/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

func TestComposeIsPure(t *testing.T) {
	rec := models.DefaultRecord()
	colors := models.DefaultColors()

	a := Compose(rec, colors, ThemeLight)
	b := Compose(rec, colors, ThemeLight)
	assert.Equal(t, a, b)
	assert.Equal(t, RenderSVG(a), RenderSVG(b))
}

func TestComposeGeometry(t *testing.T) {
	s := Compose(models.DefaultRecord(), models.DefaultColors(), ThemeLight)

	require.Len(t, s.Circles, 4)
	byField := map[models.Field]Circle{}
	for _, c := range s.Circles {
		byField[c.Field] = c
		assert.InDelta(t, 0.56*side, 2*c.R, 0.001)
	}
	love, needs, paid, good := byField[models.FieldLove], byField[models.FieldWorldNeeds], byField[models.FieldPaidFor], byField[models.FieldGoodAt]
	assert.Less(t, love.CY, paid.CY)
	assert.Less(t, good.CX, needs.CX)
	assert.InDelta(t, love.CX, paid.CX, 0.001)

	zones := map[models.Field]TextBlock{}
	for _, z := range s.Zones {
		zones[z.Field] = z.Text
	}
	assert.Less(t, zones[models.FieldPassion].X, zones[models.FieldMission].X)
	assert.Less(t, zones[models.FieldPassion].Y, zones[models.FieldProfession].Y)
	assert.Less(t, zones[models.FieldProfession].X, zones[models.FieldVocation].X)

	assert.InDelta(t, 0.30*side, 2*s.Center.R, 0.001)
	assert.Equal(t, "Ikigai", s.Center.Title.Title)
	assert.Equal(t, "A reason for being", s.Center.Subtitle.Title)
	assert.Len(t, s.Captions, 4)
}

func TestComposeThemes(t *testing.T) {
	light := Compose(models.DefaultRecord(), models.DefaultColors(), ThemeLight)
	assert.Equal(t, "#ffffff", light.Background)
	assert.Equal(t, "multiply", light.Blend)

	dark := Compose(models.DefaultRecord(), models.DefaultColors(), ParseTheme("DARK"))
	assert.Equal(t, "#1f2937", dark.Background)
	assert.Equal(t, "lighten", dark.Blend)

	assert.Equal(t, ThemeLight, ParseTheme("sepia"))
}

func TestComposeUsesAssignedColors(t *testing.T) {
	colors := models.DefaultColors()
	colors[models.FieldLove] = "#ff0000"

	s := Compose(models.DefaultRecord(), colors, ThemeLight)
	for _, c := range s.Circles {
		if c.Field == models.FieldLove {
			assert.Equal(t, "#ff0000", c.Fill)
		}
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, wrap("", 10, 3))
	assert.Equal(t, []string{"one two", "three"}, wrap("one two three", 8, 3))
	assert.Equal(t, []string{"abcde", "fgh"}, wrap("abcdefgh", 5, 3))

	lines := wrap("a b c d e f g h", 1, 2)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[1], "…"))
}

func TestRenderSVGEscapesText(t *testing.T) {
	rec := models.DefaultRecord()
	rec.Love = `<script>"x" & y</script>`

	svg := string(RenderSVG(Compose(rec, models.DefaultColors(), ThemeDark)))
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.NotContains(t, svg, "<script>")
	assert.Contains(t, svg, "&lt;script&gt;")
	assert.Contains(t, svg, "mix-blend-mode:lighten")
	assert.Contains(t, svg, `fill="#1f2937"`)
}

func TestRenderPNGPaintsBackground(t *testing.T) {
	for _, theme := range []Theme{ThemeLight, ThemeDark} {
		s := Compose(models.DefaultRecord(), models.DefaultColors(), theme)
		data, err := RenderPNG(s, PNGOptions{Scale: 1})
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, int(Canvas), img.Bounds().Dx())

		// The top-left corner is outside every circle and caption.
		r, g, b, a := img.At(1, 1).RGBA()
		want, _ := hexColor(s.Background)
		wr, wg, wb, _ := want.RGBA()
		assert.Equal(t, [4]uint32{wr, wg, wb, 0xffff}, [4]uint32{r, g, b, a}, theme)
	}
}

func TestRenderPNGIsDeterministic(t *testing.T) {
	s := Compose(models.DefaultRecord(), models.DefaultColors(), ThemeLight)
	a, err := RenderPNG(s, PNGOptions{Scale: 1})
	require.NoError(t, err)
	b, err := RenderPNG(s, PNGOptions{Scale: 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRenderPNGRejectsBadColor(t *testing.T) {
	colors := models.DefaultColors()
	colors[models.FieldGoodAt] = "teal"
	_, err := RenderPNG(Compose(models.DefaultRecord(), colors, ThemeLight), PNGOptions{Scale: 1})
	assert.Error(t, err)
}

func newTestExporter(t *testing.T, baseURL string) *Exporter {
	t.Helper()
	e, err := NewExporter(baseURL, nil, metrics.MustNew(prometheus.NewRegistry()), zap.NewNop())
	require.NoError(t, err)
	e.scale = 1
	return e
}

func TestExport(t *testing.T) {
	e := newTestExporter(t, "")
	s := Compose(models.DefaultRecord(), models.DefaultColors(), ThemeLight)

	img, err := e.Export(s)
	require.NoError(t, err)
	assert.Equal(t, "ikigai-diagram.png", img.Filename)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, 1, e.renders.Len())

	again, err := e.Export(s)
	require.NoError(t, err)
	assert.Equal(t, img.Data, again.Data)
	assert.Equal(t, 1, e.renders.Len())
}

func TestShareFallsBackToDownload(t *testing.T) {
	e := newTestExporter(t, "")
	shared, err := e.Share(Compose(models.DefaultRecord(), models.DefaultColors(), ThemeLight))
	require.NoError(t, err)
	assert.True(t, shared.Fallback())
	assert.Empty(t, shared.QRCode)
	assert.NotEmpty(t, shared.Image.Data)
}

func TestShareLink(t *testing.T) {
	e := newTestExporter(t, "https://ikigai.example.com/")
	shared, err := e.Share(Compose(models.DefaultRecord(), models.DefaultColors(), ThemeLight))
	require.NoError(t, err)
	assert.False(t, shared.Fallback())
	assert.Equal(t, "https://ikigai.example.com/shared/"+shared.Token, shared.URL)

	_, err = png.Decode(bytes.NewReader(shared.QRCode))
	require.NoError(t, err)

	img, err := e.SharedImage(shared.Token)
	require.NoError(t, err)
	assert.Equal(t, shared.Image.Data, img.Data)

	_, err = e.SharedImage("missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

// thaiFace covers the Thai block only and paints each glyph as a solid box.
type thaiFace struct {
	size  int
	drawn []rune
}

func (f *thaiFace) covers(r rune) bool { return r >= 0x0E00 && r <= 0x0E7F }

func (f *thaiFace) Close() error { return nil }

func (f *thaiFace) Glyph(dot fixed.Point26_6, r rune) (image.Rectangle, image.Image, image.Point, fixed.Int26_6, bool) {
	if !f.covers(r) {
		return image.Rectangle{}, nil, image.Point{}, 0, false
	}
	f.drawn = append(f.drawn, r)
	x, y := dot.X.Round(), dot.Y.Round()
	dr := image.Rect(x, y-f.size, x+f.size/2, y)
	return dr, image.Opaque, image.Point{}, fixed.I(f.size / 2), true
}

func (f *thaiFace) GlyphBounds(r rune) (fixed.Rectangle26_6, fixed.Int26_6, bool) {
	if !f.covers(r) {
		return fixed.Rectangle26_6{}, 0, false
	}
	return fixed.R(0, -f.size, f.size/2, 0), fixed.I(f.size / 2), true
}

func (f *thaiFace) GlyphAdvance(r rune) (fixed.Int26_6, bool) {
	if !f.covers(r) {
		return 0, false
	}
	return fixed.I(f.size / 2), true
}

func (f *thaiFace) Kern(r0, r1 rune) fixed.Int26_6 { return 0 }

func (f *thaiFace) Metrics() font.Metrics {
	return font.Metrics{Height: fixed.I(f.size), Ascent: fixed.I(f.size), Descent: 0}
}

func captionScene(text string) Scene {
	return Scene{
		Width:      240,
		Height:     80,
		Background: "#ffffff",
		Center:     Center{Fill: "#ffffff"},
		Captions: []TextBlock{{
			X: 10, Y: 40, Anchor: "start",
			Color: "#000000", Lines: []string{text}, BodySize: 20,
		}},
	}
}

func darkPixels(t *testing.T, data []byte) int {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r < 0x8000 {
				n++
			}
		}
	}
	return n
}

func TestRenderPNGDrawsThaiWithFallbackFace(t *testing.T) {
	face := &thaiFace{size: 20}
	fallback := func(float64) (font.Face, error) { return face, nil }
	core, logs := observer.New(zap.WarnLevel)

	const thai = "สวัสดี"
	data, err := RenderPNG(captionScene("Hi "+thai), PNGOptions{
		Scale:     1,
		Fallbacks: []FaceSource{fallback},
		Logger:    zap.New(core),
	})
	require.NoError(t, err)

	// Latin stays with the Go font; every Thai rune, marks included, goes to the fallback.
	assert.Equal(t, []rune(thai), face.drawn)
	assert.GreaterOrEqual(t, darkPixels(t, data), len([]rune(thai))*10*20)
	assert.Zero(t, logs.Len())
}

func TestRenderPNGWarnsAboutUndrawableRunes(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	_, err := RenderPNG(captionScene("Hi สวัสดี"), PNGOptions{Scale: 1, Logger: zap.New(core)})
	require.NoError(t, err)

	entries := logs.FilterMessage("diagram text has characters no font can draw").All()
	require.Len(t, entries, 1)
	runes := entries[0].ContextMap()["runes"].(string)
	assert.Contains(t, runes, "ส")
	assert.NotContains(t, runes, "H")
}

func TestExporterPassesFallbacksToRenderer(t *testing.T) {
	face := &thaiFace{size: 20}
	e, err := NewExporter("", []FaceSource{func(float64) (font.Face, error) { return face, nil }},
		metrics.MustNew(prometheus.NewRegistry()), zap.NewNop())
	require.NoError(t, err)
	e.scale = 1

	_, err = e.Export(captionScene("ดี"))
	require.NoError(t, err)
	assert.Equal(t, []rune("ดี"), face.drawn)
}

func TestLoadFallbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regular.ttf")
	require.NoError(t, os.WriteFile(path, goregular.TTF, 0o644))

	sources, err := LoadFallbacks([]string{path}, nil)
	require.NoError(t, err)
	require.Len(t, sources, 1)

	face, err := sources[0](12)
	require.NoError(t, err)
	defer face.Close()
	_, ok := face.GlyphAdvance('A')
	assert.True(t, ok)

	_, err = LoadFallbacks([]string{path, filepath.Join(t.TempDir(), "missing.ttf")}, nil)
	assert.Error(t, err)
}
