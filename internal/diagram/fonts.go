package diagram

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// FaceSource builds a face at a pixel size. Fallback sources are consulted
// in order for runes the built-in Go fonts have no glyph for.
type FaceSource func(size float64) (font.Face, error)

// SystemFontPaths are tried when no fallback fonts are configured. Missing
// files are skipped.
var SystemFontPaths = []string{
	"/usr/share/fonts/truetype/noto/NotoSans-Regular.ttf",
	"/usr/share/fonts/truetype/noto/NotoSansThai-Regular.ttf",
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/google-noto/NotoSansThai-Regular.ttf",
	"/usr/share/fonts/truetype/tlwg/Loma.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
	"/System/Library/Fonts/Supplemental/Thonburi.ttc",
	"/System/Library/Fonts/Hiragino Sans GB.ttc",
	`C:\Windows\Fonts\tahoma.ttf`,
	`C:\Windows\Fonts\msyh.ttc`,
}

// LoadFallbacks parses font files into face sources. Every configured path
// must load; with none configured, whichever SystemFontPaths exist are used.
func LoadFallbacks(paths []string, logger *zap.Logger) ([]FaceSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	strict := len(paths) > 0
	if !strict {
		paths = SystemFontPaths
	}

	var out []FaceSource
	for _, p := range paths {
		f, err := parseFontFile(p)
		if err != nil {
			if strict {
				return nil, err
			}
			continue
		}
		logger.Debug("fallback font loaded", zap.String("path", p))
		out = append(out, OpenTypeSource(f))
	}
	if len(out) == 0 {
		logger.Warn("no fallback fonts found, non-Latin text may render as boxes in PNG exports")
	}
	return out, nil
}

// OpenTypeSource turns a parsed font into a FaceSource.
func OpenTypeSource(f *opentype.Font) FaceSource {
	return func(size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}
}

// parseFontFile reads a TTF, OTF or the first font of a collection.
func parseFontFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	coll, err := opentype.ParseCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	if coll.NumFonts() == 0 {
		return nil, fmt.Errorf("parse font %s: empty collection", path)
	}
	f, err := coll.Font(0)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return f, nil
}
