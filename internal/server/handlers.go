package server

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"net/http"

	"github.com/BerylCAtieno/ikigai-coach/internal/advice"
	"github.com/BerylCAtieno/ikigai-coach/internal/apperr"
	"github.com/BerylCAtieno/ikigai-coach/internal/diagram"
	"github.com/BerylCAtieno/ikigai-coach/internal/gateway"
	"github.com/BerylCAtieno/ikigai-coach/internal/models"
	"github.com/BerylCAtieno/ikigai-coach/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandleGenerate is the text-generation gateway endpoint.
func (s *Server) HandleGenerate(c *gin.Context) {
	var req gateway.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("invalid generation request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gateway.ErrorResponse{Error: "Prompt is required"})
		return
	}

	resp, err := s.gateway.Generate(c.Request.Context(), req)
	if err != nil {
		s.fail(c, nil, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type recordPayload struct {
	Record     models.IkigaiRecord `json:"record"`
	Generating bool                `json:"generating"`
}

func (s *Server) handleGetRecord(c *gin.Context) {
	sess := s.session(c)
	c.JSON(http.StatusOK, recordPayload{Record: sess.Record(), Generating: sess.Generating()})
}

func (s *Server) handleUpdateRecord(c *gin.Context) {
	sess := s.session(c)

	var patch models.RecordPatch
	if isForm(c) {
		if err := c.Request.ParseForm(); err != nil {
			s.fail(c, sess, apperr.InvalidInput("Could not read the form."))
			return
		}
		for _, f := range models.AllFields {
			if v, ok := c.GetPostForm(string(f)); ok {
				patch = patch.With(f, v)
			}
		}
	} else if err := c.ShouldBindJSON(&patch); err != nil {
		s.fail(c, sess, apperr.InvalidInput("Request body must be a JSON object of record fields."))
		return
	}

	rec := sess.UpdateFields(patch)
	s.ok(c, sess, "Your answers were updated.", recordPayload{Record: rec, Generating: sess.Generating()})
}

func (s *Server) handleGenerateIntersections(c *gin.Context) {
	sess := s.session(c)
	rec, err := sess.GenerateIntersections(c.Request.Context())
	if err != nil {
		s.fail(c, sess, err)
		return
	}
	s.ok(c, sess, "Intersections generated from your four answers.", recordPayload{Record: rec})
}

func (s *Server) scene(c *gin.Context, sess *session.Session) diagram.Scene {
	colors, err := sess.Colors(c.Request.Context())
	if err != nil {
		s.logger.Warn("palette unavailable, using defaults", zap.Error(err))
	}
	return diagram.Compose(sess.Record(), colors, diagram.ParseTheme(c.Query("theme")))
}

func (s *Server) handleDiagramSVG(c *gin.Context) {
	sess := s.session(c)
	scene := s.scene(c, sess)
	c.Data(http.StatusOK, diagram.SVGContentType, s.exporter.SVG(scene))
}

func (s *Server) handleDiagramPNG(c *gin.Context) {
	sess := s.session(c)
	scene := s.scene(c, sess)
	img, err := s.exporter.Export(scene)
	if err != nil {
		s.fail(c, sess, apperr.Internal("Could not create the diagram image.", err))
		return
	}
	attachment(c, img)
}

type sharePayload struct {
	URL      string `json:"url"`
	Token    string `json:"token"`
	QRCode   string `json:"qrCode"`
	Filename string `json:"filename"`
}

func (s *Server) handleShare(c *gin.Context) {
	sess := s.session(c)
	scene := s.scene(c, sess)
	shared, err := s.exporter.Share(scene)
	if err != nil {
		s.fail(c, sess, apperr.Internal("Could not share the diagram.", err))
		return
	}
	if shared.Fallback() {
		attachment(c, shared.Image)
		return
	}

	s.ok(c, sess, "Share link: "+shared.URL, sharePayload{
		URL:      shared.URL,
		Token:    shared.Token,
		QRCode:   "data:image/png;base64," + base64.StdEncoding.EncodeToString(shared.QRCode),
		Filename: shared.Image.Filename,
	})
}

func (s *Server) handleShared(c *gin.Context) {
	img, err := s.exporter.SharedImage(c.Param("token"))
	if err != nil {
		s.fail(c, nil, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", img.Filename))
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

func attachment(c *gin.Context, img diagram.Image) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", img.Filename))
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

func (s *Server) handleGetColors(c *gin.Context) {
	sess := s.session(c)
	colors, err := sess.Colors(c.Request.Context())
	if err != nil {
		s.fail(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, colors)
}

// handleSetColors applies several colours at once. Nothing is saved when
// any entry is invalid.
func (s *Server) handleSetColors(c *gin.Context) {
	sess := s.session(c)

	updates := map[models.Field]string{}
	if isForm(c) {
		for _, f := range models.CoreFields {
			if v, ok := c.GetPostForm(string(f)); ok {
				updates[f] = v
			}
		}
	} else if err := c.ShouldBindJSON(&updates); err != nil {
		s.fail(c, sess, apperr.InvalidInput("Request body must map core fields to colours."))
		return
	}

	colors, err := sess.SetColors(c.Request.Context(), updates)
	if err != nil {
		s.fail(c, sess, err)
		return
	}
	s.ok(c, sess, "Colours updated.", colors)
}

func (s *Server) handleSetColor(c *gin.Context) {
	sess := s.session(c)
	var body struct {
		Color string `json:"color" form:"color"`
	}
	if err := c.ShouldBind(&body); err != nil {
		s.fail(c, sess, apperr.InvalidInput("A colour is required."))
		return
	}
	colors, err := sess.SetColor(c.Request.Context(), models.Field(c.Param("field")), body.Color)
	if err != nil {
		s.fail(c, sess, err)
		return
	}
	s.ok(c, sess, "Colour updated.", colors)
}

func (s *Server) handleResetColors(c *gin.Context) {
	sess := s.session(c)
	colors, err := sess.ResetColors(c.Request.Context())
	if err != nil {
		s.fail(c, sess, err)
		return
	}
	s.ok(c, sess, "Colours reset.", colors)
}

type adviceView struct {
	advice.View
	HTML template.HTML `json:"html,omitempty"`
}

func newAdviceView(v advice.View) adviceView {
	out := adviceView{View: v}
	if v.Text != "" {
		out.HTML = advice.RenderHTML(v.Text)
	}
	return out
}

func (s *Server) handleAdviceView(c *gin.Context) {
	sess := s.session(c)
	c.JSON(http.StatusOK, newAdviceView(sess.Advice.View(c.Request.Context())))
}

func (s *Server) handleRequestAdvice(c *gin.Context) {
	sess := s.session(c)
	view, err := sess.Advice.Request(c.Request.Context(), sess.Record(), confirmed(c))
	if err != nil {
		s.fail(c, sess, err)
		return
	}
	s.ok(c, sess, "", newAdviceView(view))
}

func (s *Server) handleCloseAdvice(c *gin.Context) {
	sess := s.session(c)
	if err := sess.Advice.Close(confirmed(c)); err != nil {
		s.fail(c, sess, err)
		return
	}
	s.ok(c, sess, "", newAdviceView(sess.Advice.View(c.Request.Context())))
}

func (s *Server) handleSaveAdvice(c *gin.Context) {
	sess := s.session(c)
	if err := sess.Advice.Save(c.Request.Context(), confirmed(c)); err != nil {
		s.fail(c, sess, err)
		return
	}
	s.ok(c, sess, "Advice saved.", newAdviceView(sess.Advice.View(c.Request.Context())))
}

func (s *Server) handleCopyAdvice(c *gin.Context) {
	sess := s.session(c)
	text, err := sess.Advice.Copy()
	if err != nil {
		s.fail(c, sess, err)
		return
	}
	s.ok(c, sess, "Advice copied. Select the text below to paste it elsewhere.", gin.H{"text": text})
}

func (s *Server) handleAdviceHistory(c *gin.Context) {
	sess := s.session(c)
	view, err := sess.Advice.ShowHistory(c.Request.Context(), confirmed(c))
	if err != nil {
		s.fail(c, sess, err)
		return
	}
	s.ok(c, sess, "", newAdviceView(view))
}

func (s *Server) handleDeleteAdvice(c *gin.Context) {
	sess := s.session(c)
	if err := sess.Advice.Delete(c.Request.Context(), confirmed(c)); err != nil {
		s.fail(c, sess, err)
		return
	}
	s.ok(c, sess, "Saved advice deleted.", newAdviceView(sess.Advice.View(c.Request.Context())))
}
