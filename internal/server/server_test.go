package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BerylCAtieno/ikigai-coach/internal/diagram"
	"github.com/BerylCAtieno/ikigai-coach/internal/gateway"
	"github.com/BerylCAtieno/ikigai-coach/internal/kvstore"
	"github.com/BerylCAtieno/ikigai-coach/internal/metrics"
	"github.com/BerylCAtieno/ikigai-coach/internal/models"
	"github.com/BerylCAtieno/ikigai-coach/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClient = "6f1c2a9e-3b7d-4c1e-9a5f-2d8e7b6c4a10"

func init() {
	gin.SetMode(gin.TestMode)
}

// scripted answers structured requests with intersections and free-form
// ones with advice.
type scripted struct {
	mu            sync.Mutex
	intersections string
	advice        string
}

func (s *scripted) Generate(_ context.Context, req gateway.GenerationRequest) (*gateway.GenerationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Structured {
		return gateway.TextResponse(s.intersections), nil
	}
	return gateway.TextResponse(s.advice), nil
}

type stubProvider struct{ text string }

func (p stubProvider) GenerateContent(context.Context, string, bool) (*gateway.GenerationResponse, error) {
	return gateway.TextResponse(p.text), nil
}

func (stubProvider) Close() error { return nil }

type fixture struct {
	srv    *Server
	gen    *scripted
	apiKey string
}

func newFixture(t *testing.T, baseURL string) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.MustNew(reg)

	f := &fixture{
		gen: &scripted{
			intersections: "```json\n{\"passion\":\"P\",\"mission\":\"M\",\"profession\":\"Pr\",\"vocation\":\"V\"}\n```",
			advice:        "## Next steps\n* Start small",
		},
		apiKey: "secret",
	}

	sessions, err := session.NewManager(kvstore.NewMemory(), f.gen, 16, 5*time.Second, m, nil)
	require.NoError(t, err)
	exporter, err := diagram.NewExporter(baseURL, nil, m, nil)
	require.NoError(t, err)

	gw := gateway.New(func() string { return f.apiKey }, func(context.Context, string) (gateway.Provider, error) {
		return stubProvider{text: "pong"}, nil
	}, m, nil)

	f.srv = New(Options{
		Gateway:  gw,
		Sessions: sessions,
		Exporter: exporter,
		Gatherer: reg,
	})
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(clientHeader, testClient)
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func (f *fixture) form(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(clientHeader, testClient)
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "")
	w := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestGenerateEndpoint(t *testing.T) {
	f := newFixture(t, "")

	w := f.do(http.MethodPost, "/generate", `{"prompt":"ping"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[gateway.GenerationResponse](t, w)
	assert.Equal(t, "pong", resp.Text())

	w = f.do(http.MethodPost, "/api/gemini", `{"prompt":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Prompt is required", decode[gateway.ErrorResponse](t, w).Error)

	w = f.do(http.MethodPost, "/generate", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.apiKey = ""
	w = f.do(http.MethodPost, "/generate", `{"prompt":"ping","isJsonMode":true}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "GEMINI_API_KEY is not configured", decode[gateway.ErrorResponse](t, w).Error)
}

func TestClientCookieIsIssued(t *testing.T) {
	f := newFixture(t, "")
	req := httptest.NewRequest(http.MethodGet, "/api/record", nil)
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, clientCookie, cookies[0].Name)
	assert.NotEmpty(t, validClientID(cookies[0].Value))
}

func TestRecordPatchAndGet(t *testing.T) {
	f := newFixture(t, "")

	w := f.do(http.MethodPatch, "/api/record", `{"love":"Gardening","vocation":""}`)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[recordPayload](t, f.do(http.MethodGet, "/api/record", ""))
	assert.Equal(t, "Gardening", got.Record.Love)
	assert.Empty(t, got.Record.Vocation)
	assert.Equal(t, models.DefaultRecord().GoodAt, got.Record.GoodAt)

	w = f.do(http.MethodPatch, "/api/record", `["love"]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordFormRedirectsWithFlash(t *testing.T) {
	f := newFixture(t, "")

	w := f.form("/api/record?theme=dark", url.Values{"love": {"Music"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?theme=dark", w.Header().Get("Location"))

	page := f.do(http.MethodGet, "/?theme=dark", "")
	require.Equal(t, http.StatusOK, page.Code)
	body := page.Body.String()
	assert.Contains(t, body, "Your answers were updated.")
	assert.Contains(t, body, "Music")
	assert.Contains(t, body, `data-theme="dark"`)

	// The flash is shown once.
	assert.NotContains(t, f.do(http.MethodGet, "/", "").Body.String(), "Your answers were updated.")
}

func TestGenerateIntersections(t *testing.T) {
	f := newFixture(t, "")

	w := f.do(http.MethodPost, "/api/record/intersections", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rec := decode[recordPayload](t, w).Record
	assert.Equal(t, "P", rec.Passion)
	assert.Equal(t, models.DefaultRecord().Love, rec.Love)
}

func TestGenerateIntersectionsMalformedKeepsRecord(t *testing.T) {
	f := newFixture(t, "")
	f.gen.intersections = `{"passion": "only one"`
	before := decode[recordPayload](t, f.do(http.MethodGet, "/api/record", "")).Record

	w := f.do(http.MethodPost, "/api/record/intersections", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotEmpty(t, decode[gateway.ErrorResponse](t, w).Error)

	after := decode[recordPayload](t, f.do(http.MethodGet, "/api/record", "")).Record
	assert.Equal(t, before, after)
}

func TestGenerateIntersectionsNeedsCore(t *testing.T) {
	f := newFixture(t, "")
	assert.NotContains(t, f.do(http.MethodGet, "/", "").Body.String(), "Fill in the four circles first.")

	f.do(http.MethodPatch, "/api/record", `{"goodAt":""}`)
	assert.Contains(t, f.do(http.MethodGet, "/", "").Body.String(), "Fill in the four circles first.")

	w := f.do(http.MethodPost, "/api/record/intersections", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[gateway.ErrorResponse](t, w).Error, "goodAt")
}

func TestDiagramEndpoints(t *testing.T) {
	f := newFixture(t, "")

	w := f.do(http.MethodGet, "/api/diagram.svg?theme=dark", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "#1f2937")

	w = f.do(http.MethodGet, "/api/diagram.png", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "ikigai-diagram.png")

	// No public base URL: sharing downloads instead.
	w = f.do(http.MethodPost, "/api/diagram/share", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
}

func TestShareLink(t *testing.T) {
	f := newFixture(t, "https://ikigai.example.com")

	w := f.do(http.MethodPost, "/api/diagram/share", "")
	require.Equal(t, http.StatusOK, w.Code)
	shared := decode[sharePayload](t, w)
	assert.True(t, strings.HasPrefix(shared.URL, "https://ikigai.example.com/shared/"))
	assert.True(t, strings.HasPrefix(shared.QRCode, "data:image/png;base64,"))

	w = f.do(http.MethodGet, "/shared/"+shared.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/shared/nope", "").Code)
}

func TestColors(t *testing.T) {
	f := newFixture(t, "")

	w := f.do(http.MethodPut, "/api/colors/love", `{"color":"#AA0000"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "#aa0000", decode[map[string]string](t, w)["love"])

	w = f.do(http.MethodPut, "/api/colors/love", `{"color":"not-a-colour"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPut, "/api/colors/passion", `{"color":"#000000"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPut, "/api/colors", `{"paidFor":"#00ff00","mission":"#000000"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPut, "/api/colors", `{"paidFor":"#00ff00"}`)
	require.Equal(t, http.StatusOK, w.Code)

	colors := decode[map[string]string](t, f.do(http.MethodGet, "/api/colors", ""))
	assert.Equal(t, "#aa0000", colors["love"])
	assert.Equal(t, "#00ff00", colors["paidFor"])

	assert.Contains(t, f.do(http.MethodGet, "/api/diagram.svg", "").Body.String(), "#aa0000")

	w = f.do(http.MethodPost, "/api/colors/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "#06b6d4", decode[map[string]string](t, w)["love"])
}

func TestRejectedColourBatchChangesNothing(t *testing.T) {
	f := newFixture(t, "")

	w := f.do(http.MethodPut, "/api/colors", `{"love":"#ff0000","goodAt":"not-a-colour"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	colors := decode[map[string]string](t, f.do(http.MethodGet, "/api/colors", ""))
	assert.Equal(t, models.DefaultColors()[models.FieldLove], colors["love"])
	assert.Equal(t, models.DefaultColors()[models.FieldGoodAt], colors["goodAt"])
}

func TestAdviceFlow(t *testing.T) {
	f := newFixture(t, "")

	view := decode[adviceView](t, f.do(http.MethodPost, "/api/advice", ""))
	assert.Equal(t, "loaded", string(view.State))
	assert.Contains(t, string(view.HTML), "<h2")

	w := f.do(http.MethodPost, "/api/advice/close", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	// Unsaved advice is not replaced without confirmation.
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/advice", "").Code)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodGet, "/api/advice/history", "").Code)

	w = f.do(http.MethodPost, "/api/advice/copy", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "## Next steps\n* Start small", decode[map[string]string](t, w)["text"])

	w = f.do(http.MethodPost, "/api/advice/save", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[adviceView](t, w).Saved)

	w = f.do(http.MethodPost, "/api/advice/close", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/advice/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "history", string(decode[adviceView](t, w).State))

	w = f.do(http.MethodDelete, "/api/advice/saved", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodDelete, "/api/advice/saved", `{"confirm":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[adviceView](t, w).HasSaved)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/advice/history", "").Code)
}

func TestAdviceNeedsAllFields(t *testing.T) {
	f := newFixture(t, "")
	f.do(http.MethodPatch, "/api/record", `{"mission":""}`)

	w := f.do(http.MethodPost, "/api/advice", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "closed", string(decode[adviceView](t, f.do(http.MethodGet, "/api/advice", "")).State))
}

func TestFormConfirmation(t *testing.T) {
	f := newFixture(t, "")
	require.Equal(t, http.StatusSeeOther, f.form("/api/advice", url.Values{}).Code)

	w := f.form("/api/advice/close", url.Values{})
	require.Equal(t, http.StatusSeeOther, w.Code)

	page := f.do(http.MethodGet, "/", "").Body.String()
	assert.Contains(t, page, "This advice has not been saved. Close anyway?")
	assert.Contains(t, page, `action="/api/advice/close?confirm=true`)
	assert.Contains(t, page, "Next steps")

	w = f.form("/api/advice/close?confirm=true", url.Values{"confirm": {"true"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "closed", string(decode[adviceView](t, f.do(http.MethodGet, "/api/advice", "")).State))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, "")
	f.do(http.MethodPost, "/generate", `{"prompt":"ping"}`)

	w := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ikigai_gateway_requests_total")
}
