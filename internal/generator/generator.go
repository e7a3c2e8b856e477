package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/BerylCAtieno/ikigai-coach/internal/apperr"
	"github.com/BerylCAtieno/ikigai-coach/internal/gateway"
	"github.com/BerylCAtieno/ikigai-coach/internal/models"
	"go.uber.org/zap"
)

// IntersectionGenerator derives the four intersections from the four core
// attributes with one structured-output request.
type IntersectionGenerator struct {
	gen    gateway.Generator
	logger *zap.Logger
}

func New(gen gateway.Generator, logger *zap.Logger) *IntersectionGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntersectionGenerator{gen: gen, logger: logger}
}

// Generate returns the parsed intersections. The record is only read; the
// caller merges the result.
func (g *IntersectionGenerator) Generate(ctx context.Context, rec models.IkigaiRecord) (models.Intersections, error) {
	if missing := rec.Missing(models.CoreFields); len(missing) > 0 {
		return models.Intersections{}, apperr.InvalidInput(fmt.Sprintf("Please fill in the four core fields first (missing: %s)", models.JoinFields(missing)))
	}

	resp, err := g.gen.Generate(ctx, gateway.GenerationRequest{
		Prompt:     BuildPrompt(rec),
		Structured: true,
	})
	if err != nil {
		return models.Intersections{}, fmt.Errorf("generate intersections: %w", err)
	}

	text := resp.Text()
	out, err := ParseIntersections(text)
	if err != nil {
		g.logger.Warn("intersection response did not parse", zap.String("text", text), zap.Error(err))
		return models.Intersections{}, err
	}
	return out, nil
}

// BuildPrompt embeds the core values and the meaning of each intersection.
func BuildPrompt(rec models.IkigaiRecord) string {
	return fmt.Sprintf(`You are an expert Ikigai life coach. Based ONLY on the four answers below, write a short, concrete phrase for each of the four Ikigai intersections.

What I love: %s
What I am good at: %s
What the world needs: %s
What I can be paid for: %s

Definitions:
- passion: what I love AND what I am good at
- mission: what I love AND what the world needs
- profession: what I am good at AND what I can be paid for
- vocation: what I can be paid for AND what the world needs

Answer with a single JSON object and nothing else, using exactly these keys:
{"passion": "...", "mission": "...", "profession": "...", "vocation": "..."}`,
		rec.Love, rec.GoodAt, rec.WorldNeeds, rec.PaidFor)
}

const fence = "```"

// StripCodeFences returns the body between the first and the last code
// fence, without its info string. Text outside the fences is dropped. A
// reply with no fence is only trimmed.
func StripCodeFences(text string) string {
	s := strings.TrimSpace(text)
	open := strings.Index(s, fence)
	if open < 0 {
		return s
	}
	body := s[open+len(fence):]
	if end := strings.LastIndex(body, fence); end >= 0 {
		body = body[:end]
	}
	body = strings.TrimSpace(body)

	// Drop the info string ("json", "JSON", ...), on its own line or not.
	if n := strings.IndexFunc(body, func(r rune) bool { return !unicode.IsLetter(r) }); n > 0 {
		if rest := strings.TrimSpace(body[n:]); strings.HasPrefix(rest, "{") || strings.HasPrefix(rest, "[") {
			body = rest
		}
	}
	return body
}

type rawIntersections struct {
	Passion    *string `json:"passion"`
	Mission    *string `json:"mission"`
	Profession *string `json:"profession"`
	Vocation   *string `json:"vocation"`
}

// ParseIntersections strips code fences and decodes a JSON object holding
// all four intersection strings.
func ParseIntersections(text string) (models.Intersections, error) {
	body := StripCodeFences(text)
	if body == "" {
		return models.Intersections{}, apperr.Parse("the AI returned an empty response", nil)
	}

	var raw rawIntersections
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return models.Intersections{}, apperr.Parse("the AI response was not valid JSON", err)
	}
	if raw.Passion == nil || raw.Mission == nil || raw.Profession == nil || raw.Vocation == nil {
		return models.Intersections{}, apperr.Parse("the AI response is missing an intersection", nil)
	}

	return models.Intersections{
		Passion:    *raw.Passion,
		Mission:    *raw.Mission,
		Profession: *raw.Profession,
		Vocation:   *raw.Vocation,
	}, nil
}
