package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/BerylCAtieno/ikigai-coach/internal/advice"
	"github.com/BerylCAtieno/ikigai-coach/internal/diagram"
	"github.com/BerylCAtieno/ikigai-coach/internal/models"
	"github.com/BerylCAtieno/ikigai-coach/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type formField struct {
	Name  string
	Label string
	Value string
	Color string
}

type pageData struct {
	Theme       diagram.Theme
	OtherTheme  diagram.Theme
	Flash       session.Flash
	Core        []formField
	Inter       []formField
	Diagram     template.HTML
	Generating  bool
	CanGenerate bool
	CanAdvise   bool
	Advice      adviceView
	Open        bool
}

func (s *Server) handlePage(c *gin.Context) {
	sess := s.session(c)
	ctx := c.Request.Context()

	rec := sess.Record()
	colors, err := sess.Colors(ctx)
	if err != nil {
		s.logger.Warn("palette unavailable, using defaults", zap.Error(err))
	}
	theme := diagram.ParseTheme(c.Query("theme"))
	other := diagram.ThemeDark
	if theme == diagram.ThemeDark {
		other = diagram.ThemeLight
	}

	view := sess.Advice.View(ctx)
	data := pageData{
		Theme:       theme,
		OtherTheme:  other,
		Flash:       sess.TakeFlash(),
		Core:        fieldsOf(rec, colors, models.CoreFields),
		Inter:       fieldsOf(rec, colors, models.IntersectionFields),
		Diagram:     template.HTML(s.exporter.SVG(diagram.Compose(rec, colors, theme))),
		Generating:  sess.Generating(),
		CanGenerate: rec.CoreComplete(),
		CanAdvise:   rec.Complete(),
		Advice:      newAdviceView(view),
		Open:        view.State != advice.StateClosed,
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("render page", zap.Error(err))
		c.String(http.StatusInternalServerError, "could not render the page")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func fieldsOf(rec models.IkigaiRecord, colors models.ColorAssignment, fs []models.Field) []formField {
	out := make([]formField, 0, len(fs))
	for _, f := range fs {
		ff := formField{Name: string(f), Label: f.Label(), Value: rec.Get(f)}
		if f.IsCore() {
			ff.Color = colors.Color(f)
		}
		out = append(out, ff)
	}
	return out
}
