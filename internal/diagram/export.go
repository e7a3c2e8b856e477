package diagram

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BerylCAtieno/ikigai-coach/internal/apperr"
	"github.com/BerylCAtieno/ikigai-coach/internal/metrics"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	Filename       = "ikigai-diagram.png"
	PNGContentType = "image/png"
	SVGContentType = "image/svg+xml"

	renderCacheSize = 64
	shareCacheSize  = 256
	qrSize          = 256
)

// Image is a rendered diagram ready to be downloaded.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Shared is the outcome of a share action. Without a public base URL the
// share falls back to a download and URL is empty.
type Shared struct {
	Image  Image
	Token  string
	URL    string
	QRCode []byte
}

// Fallback reports whether the share degraded to a plain download.
func (s Shared) Fallback() bool {
	return s.URL == ""
}

// Exporter rasterises scenes and keeps recent renders and shared links in
// memory.
type Exporter struct {
	scale     float64
	baseURL   string
	fallbacks []FaceSource
	renders   *lru.Cache[string, []byte]
	shared    *lru.Cache[string, []byte]
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewExporter builds an exporter. fallbacks are passed to every PNG render,
// see LoadFallbacks.
func NewExporter(baseURL string, fallbacks []FaceSource, m *metrics.Metrics, logger *zap.Logger) (*Exporter, error) {
	renders, err := lru.New[string, []byte](renderCacheSize)
	if err != nil {
		return nil, fmt.Errorf("render cache: %w", err)
	}
	shared, err := lru.New[string, []byte](shareCacheSize)
	if err != nil {
		return nil, fmt.Errorf("share cache: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		scale:     ExportScale,
		baseURL:   strings.TrimRight(baseURL, "/"),
		fallbacks: fallbacks,
		renders:   renders,
		shared:    shared,
		metrics:   m,
		logger:    logger,
	}, nil
}

// SVG renders the vector form of a scene.
func (e *Exporter) SVG(s Scene) []byte {
	e.metrics.ObserveExport("svg", "render")
	return RenderSVG(s)
}

// Export rasterises a scene for download.
func (e *Exporter) Export(s Scene) (Image, error) {
	data, err := e.rasterise(s)
	if err != nil {
		e.logger.Warn("diagram export failed", zap.Error(err))
		return Image{}, err
	}
	e.metrics.ObserveExport("png", "download")
	return Image{Filename: Filename, ContentType: PNGContentType, Data: data}, nil
}

// Share rasterises a scene and publishes it under a random token. With no
// public base URL configured it behaves like Export.
func (e *Exporter) Share(s Scene) (Shared, error) {
	data, err := e.rasterise(s)
	if err != nil {
		e.logger.Warn("diagram share failed", zap.Error(err))
		return Shared{}, err
	}
	img := Image{Filename: Filename, ContentType: PNGContentType, Data: data}

	if e.baseURL == "" {
		e.logger.Info("no public base URL configured, sharing as download")
		e.metrics.ObserveExport("png", "download")
		return Shared{Image: img}, nil
	}

	token := uuid.NewString()
	url := fmt.Sprintf("%s/shared/%s", e.baseURL, token)
	qr, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		e.logger.Warn("share QR code failed", zap.Error(err))
		return Shared{}, fmt.Errorf("encode share QR code: %w", err)
	}
	e.shared.Add(token, data)
	e.metrics.ObserveExport("png", "share")

	return Shared{Image: img, Token: token, URL: url, QRCode: qr}, nil
}

// SharedImage returns a previously shared PNG.
func (e *Exporter) SharedImage(token string) (Image, error) {
	data, ok := e.shared.Get(token)
	if !ok {
		return Image{}, apperr.NotFound("This shared diagram has expired or does not exist.")
	}
	return Image{Filename: Filename, ContentType: PNGContentType, Data: data}, nil
}

func (e *Exporter) rasterise(s Scene) ([]byte, error) {
	key, err := sceneKey(s, e.scale)
	if err != nil {
		return nil, err
	}
	if data, ok := e.renders.Get(key); ok {
		return data, nil
	}
	data, err := RenderPNG(s, PNGOptions{Scale: e.scale, Fallbacks: e.fallbacks, Logger: e.logger})
	if err != nil {
		return nil, fmt.Errorf("rasterise diagram: %w", err)
	}
	e.renders.Add(key, data)
	return data, nil
}

func sceneKey(s Scene, scale float64) (string, error) {
	raw, err := json.Marshal(struct {
		Scene Scene
		Scale float64
	}{s, scale})
	if err != nil {
		return "", fmt.Errorf("hash scene: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
