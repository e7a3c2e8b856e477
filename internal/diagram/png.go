package diagram

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"slices"
	"sync"
	"unicode"

	colorful "github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// ExportScale is the pixel ratio used for PNG exports.
const ExportScale = 2.5

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

var (
	fontsOnce    sync.Once
	regularFont  *opentype.Font
	boldFont     *opentype.Font
	fontsLoadErr error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		regularFont, fontsLoadErr = opentype.Parse(goregular.TTF)
		if fontsLoadErr != nil {
			return
		}
		boldFont, fontsLoadErr = opentype.Parse(gobold.TTF)
	})
	return fontsLoadErr
}

// PNGOptions controls rasterisation.
type PNGOptions struct {
	// Scale is the pixel ratio; zero means 1.
	Scale float64
	// Fallbacks draw runes the Go fonts lack, first match wins.
	Fallbacks []FaceSource
	Logger    *zap.Logger
}

// RenderPNG rasterises a scene.
func RenderPNG(s Scene, opts PNGOptions) ([]byte, error) {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}

	w := int(math.Ceil(s.Width * scale))
	h := int(math.Ceil(s.Height * scale))
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	bg, err := hexColor(s.Background)
	if err != nil {
		return nil, err
	}
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	for _, c := range s.Circles {
		fill, err := colorful.Hex(c.Fill)
		if err != nil {
			return nil, fmt.Errorf("circle %s: %w", c.Field, err)
		}
		mask := circleMask(w, h, c.CX*scale, c.CY*scale, c.R*scale)
		blendInto(img, mask, fill, s.Blend, s.Opacity)
	}

	r := &renderer{
		img:       img,
		scale:     scale,
		fallbacks: opts.Fallbacks,
		chains:    map[faceKey][]font.Face{},
		missing:   map[rune]struct{}{},
	}
	defer r.close()

	for _, c := range s.Circles {
		if err := r.text(c.Text); err != nil {
			return nil, err
		}
	}
	for _, z := range s.Zones {
		if err := r.text(z.Text); err != nil {
			return nil, err
		}
	}

	centerFill, err := hexColor(s.Center.Fill)
	if err != nil {
		return nil, err
	}
	disc := circlePath(w, h, s.Center.CX*scale, s.Center.CY*scale, s.Center.R*scale)
	disc.Draw(img, img.Bounds(), image.NewUniform(centerFill), image.Point{})

	for _, t := range append([]TextBlock{s.Center.Title, s.Center.Subtitle}, s.Captions...) {
		if err := r.text(t); err != nil {
			return nil, err
		}
	}

	if len(r.missing) > 0 {
		runes := make([]rune, 0, len(r.missing))
		for c := range r.missing {
			runes = append(runes, c)
		}
		slices.Sort(runes)
		logger.Warn("diagram text has characters no font can draw",
			zap.String("runes", string(runes)),
			zap.Int("fallbacks", len(opts.Fallbacks)))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func circlePath(w, h int, cx, cy, r float64) *vector.Rasterizer {
	z := vector.NewRasterizer(w, h)
	k := r * kappa
	f := func(v float64) float32 { return float32(v) }

	z.MoveTo(f(cx+r), f(cy))
	z.CubeTo(f(cx+r), f(cy+k), f(cx+k), f(cy+r), f(cx), f(cy+r))
	z.CubeTo(f(cx-k), f(cy+r), f(cx-r), f(cy+k), f(cx-r), f(cy))
	z.CubeTo(f(cx-r), f(cy-k), f(cx-k), f(cy-r), f(cx), f(cy-r))
	z.CubeTo(f(cx+k), f(cy-r), f(cx+r), f(cy-k), f(cx+r), f(cy))
	z.ClosePath()
	return z
}

func circleMask(w, h int, cx, cy, r float64) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	circlePath(w, h, cx, cy, r).Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// blendInto composites fill over img where mask covers it, using the
// separable "multiply" or "lighten" blend modes at the given opacity.
func blendInto(img *image.RGBA, mask *image.Alpha, fill colorful.Color, mode string, opacity float64) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cov := mask.AlphaAt(x, y).A
			if cov == 0 {
				continue
			}
			a := float64(cov) / 255 * opacity

			i := img.PixOffset(x, y)
			dst := colorful.Color{
				R: float64(img.Pix[i]) / 255,
				G: float64(img.Pix[i+1]) / 255,
				B: float64(img.Pix[i+2]) / 255,
			}
			mixed := colorful.Color{
				R: blendChannel(mode, dst.R, fill.R),
				G: blendChannel(mode, dst.G, fill.G),
				B: blendChannel(mode, dst.B, fill.B),
			}
			out := colorful.Color{
				R: dst.R*(1-a) + mixed.R*a,
				G: dst.G*(1-a) + mixed.G*a,
				B: dst.B*(1-a) + mixed.B*a,
			}.Clamped()

			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = out.RGB255()
			img.Pix[i+3] = 0xff
		}
	}
}

func blendChannel(mode string, dst, src float64) float64 {
	switch mode {
	case "multiply":
		return dst * src
	case "lighten":
		return math.Max(dst, src)
	default:
		return src
	}
}

type faceKey struct {
	bold bool
	size float64
}

type renderer struct {
	img       *image.RGBA
	scale     float64
	fallbacks []FaceSource
	chains    map[faceKey][]font.Face
	missing   map[rune]struct{}
}

// chain returns the Go font face followed by one face per fallback.
func (r *renderer) chain(bold bool, size float64) ([]font.Face, error) {
	key := faceKey{bold, size}
	if c, ok := r.chains[key]; ok {
		return c, nil
	}
	src := regularFont
	if bold {
		src = boldFont
	}
	primary, err := OpenTypeSource(src)(size * r.scale)
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	c := []font.Face{primary}
	for _, fb := range r.fallbacks {
		f, err := fb(size * r.scale)
		if err != nil {
			closeFaces(c)
			return nil, fmt.Errorf("fallback font face: %w", err)
		}
		c = append(c, f)
	}
	r.chains[key] = c
	return c, nil
}

func (r *renderer) close() {
	for _, c := range r.chains {
		closeFaces(c)
	}
}

func closeFaces(faces []font.Face) {
	for _, f := range faces {
		f.Close()
	}
}

type textRun struct {
	face font.Face
	text string
}

// runs splits s into stretches drawn by the same face.
func (r *renderer) runs(chain []font.Face, s string) []textRun {
	var out []textRun
	start, cur := 0, -1
	for i, c := range s {
		idx := r.pick(chain, cur, c)
		if idx != cur && cur >= 0 {
			out = append(out, textRun{chain[cur], s[start:i]})
			start = i
		}
		cur = idx
	}
	if cur >= 0 {
		out = append(out, textRun{chain[cur], s[start:]})
	}
	return out
}

// pick returns the index of the first face with a glyph for c. Combining
// marks stay with their base when it can draw them. Runes nobody covers are
// recorded and drawn with the primary face.
func (r *renderer) pick(chain []font.Face, cur int, c rune) int {
	if cur >= 0 && unicode.Is(unicode.Mn, c) {
		if _, ok := chain[cur].GlyphAdvance(c); ok {
			return cur
		}
	}
	for i, f := range chain {
		if _, ok := f.GlyphAdvance(c); ok {
			return i
		}
	}
	if unicode.IsGraphic(c) && !unicode.IsSpace(c) {
		r.missing[c] = struct{}{}
	}
	return 0
}

func (r *renderer) text(t TextBlock) error {
	if t.Title == "" && len(t.Lines) == 0 {
		return nil
	}
	titleY, bodyY := t.lineLayout()

	if t.Title != "" {
		if err := r.line(t.Title, t.X, titleY, t.Anchor, t.Color, t.Bold, t.TitleSize); err != nil {
			return err
		}
	}
	for i, l := range t.Lines {
		if err := r.line(l, t.X, bodyY[i], t.Anchor, t.bodyColor(), false, t.BodySize); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) line(s string, x, y float64, anchor, hex string, bold bool, size float64) error {
	chain, err := r.chain(bold, size)
	if err != nil {
		return err
	}
	c, err := hexColor(hex)
	if err != nil {
		return err
	}

	runs := r.runs(chain, s)
	var adv fixed.Int26_6
	for _, run := range runs {
		adv += font.MeasureString(run.face, run.text)
	}

	px := x * r.scale
	width := float64(adv) / 64
	switch anchor {
	case "middle":
		px -= width / 2
	case "end":
		px -= width
	}

	d := font.Drawer{
		Dst: r.img,
		Src: image.NewUniform(c),
		Dot: fixed.Point26_6{X: fixed.Int26_6(px * 64), Y: fixed.Int26_6(y * r.scale * 64)},
	}
	for _, run := range runs {
		d.Face = run.face
		d.DrawString(run.text)
	}
	return nil
}

func hexColor(hex string) (color.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("parse colour %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}
