package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BerylCAtieno/ikigai-coach/internal/apperr"
	"github.com/BerylCAtieno/ikigai-coach/internal/gateway"
	"github.com/BerylCAtieno/ikigai-coach/internal/kvstore"
	"github.com/BerylCAtieno/ikigai-coach/internal/metrics"
	"github.com/BerylCAtieno/ikigai-coach/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, gen gateway.Generator, size int) *Manager {
	t.Helper()
	m, err := NewManager(kvstore.NewMemory(), gen, size, 5*time.Second, metrics.MustNew(prometheus.NewRegistry()), nil)
	require.NoError(t, err)
	return m
}

func textGen(text string, calls *int) gateway.Generator {
	return gateway.GeneratorFunc(func(context.Context, gateway.GenerationRequest) (*gateway.GenerationResponse, error) {
		if calls != nil {
			*calls++
		}
		return gateway.TextResponse(text), nil
	})
}

func TestNewSessionStartsFromSeededRecord(t *testing.T) {
	m := newManager(t, textGen("", nil), 4)
	s := m.Get("client-a")
	assert.Equal(t, models.DefaultRecord(), s.Record())
	assert.Same(t, s, m.Get("client-a"))
	assert.Equal(t, 1, m.Len())
}

func TestUpdateFields(t *testing.T) {
	m := newManager(t, textGen("", nil), 4)
	s := m.Get("c")

	love := "Cooking"
	empty := ""
	rec := s.UpdateFields(models.RecordPatch{Love: &love, Vocation: &empty})
	assert.Equal(t, "Cooking", rec.Love)
	assert.Empty(t, rec.Vocation)
	assert.Equal(t, models.DefaultRecord().GoodAt, rec.GoodAt)
}

func TestGenerateIntersectionsMergesFencedJSON(t *testing.T) {
	reply := "```json\n{\"passion\":\"P\",\"mission\":\"M\",\"profession\":\"Pr\",\"vocation\":\"V\"}\n```"
	m := newManager(t, textGen(reply, nil), 4)
	s := m.Get("c")
	before := s.Record()

	rec, err := s.GenerateIntersections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "P", rec.Passion)
	assert.Equal(t, "M", rec.Mission)
	assert.Equal(t, "Pr", rec.Profession)
	assert.Equal(t, "V", rec.Vocation)

	for _, f := range models.CoreFields {
		assert.Equal(t, before.Get(f), rec.Get(f))
	}
	assert.False(t, s.Generating())
}

func TestGenerateIntersectionsMalformedLeavesRecordUnchanged(t *testing.T) {
	for _, reply := range []string{
		"not json",
		"```json\n{\"passion\":\"P\"\n```",
		`{"passion":"P","mission":"M"}`,
		"",
	} {
		m := newManager(t, textGen(reply, nil), 4)
		s := m.Get("c")
		before := s.Record()

		_, err := s.GenerateIntersections(context.Background())
		assert.True(t, apperr.Is(err, apperr.KindParse), "reply %q", reply)
		assert.Equal(t, before, s.Record())
		assert.False(t, s.Generating())
	}
}

func TestGenerateIntersectionsNeedsCoreFields(t *testing.T) {
	calls := 0
	m := newManager(t, textGen("{}", &calls), 4)
	s := m.Get("c")
	empty := ""
	s.UpdateFields(models.RecordPatch{Love: &empty, PaidFor: &empty})
	before := s.Record()

	_, err := s.GenerateIntersections(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
	assert.Contains(t, apperr.MessageOf(err), "love")
	assert.Contains(t, apperr.MessageOf(err), "paidFor")
	assert.Equal(t, 0, calls)
	assert.False(t, s.Generating())
	assert.Equal(t, before, s.Record())
}

func TestGenerateIntersectionsUpstreamFailure(t *testing.T) {
	gen := gateway.GeneratorFunc(func(context.Context, gateway.GenerationRequest) (*gateway.GenerationResponse, error) {
		return nil, apperr.Upstream(429, "quota exceeded", nil)
	})
	m := newManager(t, gen, 4)
	s := m.Get("c")
	before := s.Record()

	_, err := s.GenerateIntersections(context.Background())
	assert.Equal(t, 429, apperr.StatusOf(err))
	assert.Equal(t, before, s.Record())
	assert.False(t, s.Generating())
}

func TestGenerateIntersectionsIsSingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gen := gateway.GeneratorFunc(func(context.Context, gateway.GenerationRequest) (*gateway.GenerationResponse, error) {
		close(started)
		<-release
		return gateway.TextResponse(`{"passion":"P","mission":"M","profession":"Pr","vocation":"V"}`), nil
	})
	m := newManager(t, gen, 4)
	s := m.Get("c")

	done := make(chan error)
	go func() {
		_, err := s.GenerateIntersections(context.Background())
		done <- err
	}()

	<-started
	assert.True(t, s.Generating())
	_, err := s.GenerateIntersections(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindBusy))

	close(release)
	require.NoError(t, <-done)
	assert.False(t, s.Generating())
	assert.Equal(t, "P", s.Record().Passion)
}

func TestColorsAndAdviceSurviveEviction(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, textGen("advice text", nil), 1)

	s := m.Get("a")
	_, err := s.SetColor(ctx, models.FieldLove, "#FF0000")
	require.NoError(t, err)
	_, err = s.Advice.Request(ctx, s.Record(), false)
	require.NoError(t, err)
	require.NoError(t, s.Advice.Save(ctx, false))
	love := "changed"
	s.UpdateFields(models.RecordPatch{Love: &love})

	// Size one: a second client evicts the first.
	other := m.Get("b")
	otherColors, err := other.Colors(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultColors(), otherColors)
	assert.False(t, other.Advice.View(ctx).HasSaved)

	again := m.Get("a")
	assert.NotSame(t, s, again)
	assert.Equal(t, models.DefaultRecord(), again.Record())

	colors, err := again.Colors(ctx)
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", colors[models.FieldLove])

	view, err := again.Advice.ShowHistory(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "advice text", view.Text)
}

func TestResetColors(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, textGen("", nil), 4)
	s := m.Get("c")

	_, err := s.SetColor(ctx, models.FieldPaidFor, "#123456")
	require.NoError(t, err)
	colors, err := s.ResetColors(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultColors(), colors)

	loaded, err := s.Colors(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultColors(), loaded)
}

func TestConcurrentColorUpdatesAreKept(t *testing.T) {
	m := newManager(t, textGen("", nil), 4)
	s := m.Get("c")
	ctx := context.Background()

	want := map[models.Field]string{
		models.FieldLove:       "#111111",
		models.FieldGoodAt:     "#222222",
		models.FieldWorldNeeds: "#333333",
		models.FieldPaidFor:    "#444444",
	}
	var wg sync.WaitGroup
	for field, color := range want {
		field, color := field, color
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.SetColor(ctx, field, color)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	colors, err := s.Colors(ctx)
	require.NoError(t, err)
	for field, color := range want {
		assert.Equal(t, color, colors[field], field)
	}
}

func TestFlash(t *testing.T) {
	m := newManager(t, textGen("", nil), 4)
	s := m.Get("c")
	s.SetFlash(Flash{Message: "Replace it?", Confirm: "/api/advice/save"})
	assert.Equal(t, Flash{Message: "Replace it?", Confirm: "/api/advice/save"}, s.TakeFlash())
	assert.Equal(t, Flash{}, s.TakeFlash())
}
