package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/BerylCAtieno/ikigai-coach/internal/apperr"
	"github.com/BerylCAtieno/ikigai-coach/internal/gateway"
	"github.com/BerylCAtieno/ikigai-coach/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// isForm reports whether the request came from the page's HTML forms.
// Those get a redirect with a flash notice instead of JSON.
func isForm(c *gin.Context) bool {
	switch c.ContentType() {
	case gin.MIMEPOSTForm, gin.MIMEMultipartPOSTForm:
		return true
	}
	return false
}

// confirmed reads the confirm flag from the query, a form field or a JSON
// body.
func confirmed(c *gin.Context) bool {
	if v, ok := c.GetQuery("confirm"); ok {
		b, _ := strconv.ParseBool(v)
		return b
	}
	if isForm(c) {
		b, _ := strconv.ParseBool(c.PostForm("confirm"))
		return b
	}
	if c.Request.Body == nil {
		return false
	}
	var body struct {
		Confirm bool `json:"confirm"`
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		return false
	}
	_ = json.Unmarshal(raw, &body)
	return body.Confirm
}

// ok answers a successful action: JSON for API callers, a redirect home
// with notice for form posts.
func (s *Server) ok(c *gin.Context, sess *session.Session, notice string, payload any) {
	if isForm(c) {
		if notice != "" {
			sess.SetFlash(session.Flash{Message: notice})
		}
		redirectHome(c)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// fail answers an error. Form posts get the message as a flash, and a
// confirmation prompt that re-posts to the same path.
func (s *Server) fail(c *gin.Context, sess *session.Session, err error) {
	status := apperr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	_ = c.Error(err)

	if isForm(c) && sess != nil {
		f := session.Flash{Message: apperr.MessageOf(err)}
		if apperr.Is(err, apperr.KindConfirmationRequired) {
			f.Confirm = c.Request.URL.Path
		}
		sess.SetFlash(f)
		redirectHome(c)
		return
	}
	c.JSON(status, gateway.ErrorResponse{Error: apperr.MessageOf(err)})
}

func redirectHome(c *gin.Context) {
	target := "/"
	if theme := c.Query("theme"); theme != "" {
		target += "?" + url.Values{"theme": {theme}}.Encode()
	}
	c.Redirect(http.StatusSeeOther, target)
}
