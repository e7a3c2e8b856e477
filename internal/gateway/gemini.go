package gateway

import (
	"context"
	"errors"
	"fmt"

	pb "cloud.google.com/go/ai/generativelanguage/apiv1beta/generativelanguagepb"
	"github.com/BerylCAtieno/ikigai-coach/internal/apperr"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiProvider talks to the Gemini API through the generative-ai-go SDK.
type GeminiProvider struct {
	client    *genai.Client
	modelName string
}

func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:    client,
		modelName: modelName,
	}, nil
}

// GeminiFactory returns a ProviderFactory bound to modelName.
func GeminiFactory(modelName string) ProviderFactory {
	return func(ctx context.Context, apiKey string) (Provider, error) {
		return NewGeminiProvider(ctx, apiKey, modelName)
	}
}

func (g *GeminiProvider) Close() error {
	return g.client.Close()
}

func (g *GeminiProvider) GenerateContent(ctx context.Context, prompt string, structured bool) (*GenerationResponse, error) {
	model := g.client.GenerativeModel(g.modelName)
	if structured {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, upstreamError(err)
	}

	return envelopeFrom(resp), nil
}

// upstreamError keeps the provider's HTTP status and body when the SDK
// exposes them.
func upstreamError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		body := gerr.Body
		if body == "" {
			body = gerr.Message
		}
		return apperr.Upstream(gerr.Code, body, err)
	}
	return apperr.Upstream(0, fmt.Sprintf("Error calling Gemini API: %v", err), err)
}

// envelopeFrom carries everything the SDK exposes into the wire envelope.
// Enum values use the provider's REST names ("STOP", "HARM_CATEGORY_...").
func envelopeFrom(resp *genai.GenerateContentResponse) *GenerationResponse {
	out := &GenerationResponse{Candidates: []Candidate{}}
	if resp == nil {
		return out
	}

	for _, c := range resp.Candidates {
		if c == nil {
			continue
		}
		cand := Candidate{
			Index:            c.Index,
			FinishReason:     pb.Candidate_FinishReason(c.FinishReason).String(),
			Content:          Content{Parts: []Part{}},
			SafetyRatings:    safetyRatings(c.SafetyRatings),
			CitationMetadata: citations(c.CitationMetadata),
			TokenCount:       c.TokenCount,
		}
		if c.Content != nil {
			cand.Content.Role = c.Content.Role
			for _, p := range c.Content.Parts {
				if part, ok := partFrom(p); ok {
					cand.Content.Parts = append(cand.Content.Parts, part)
				}
			}
		}
		out.Candidates = append(out.Candidates, cand)
	}

	if f := resp.PromptFeedback; f != nil {
		out.PromptFeedback = &PromptFeedback{
			SafetyRatings: safetyRatings(f.SafetyRatings),
		}
		if f.BlockReason != genai.BlockReasonUnspecified {
			out.PromptFeedback.BlockReason = pb.GenerateContentResponse_PromptFeedback_BlockReason(f.BlockReason).String()
		}
	}

	if u := resp.UsageMetadata; u != nil {
		out.UsageMetadata = &UsageMetadata{
			PromptTokenCount:        u.PromptTokenCount,
			CachedContentTokenCount: u.CachedContentTokenCount,
			CandidatesTokenCount:    u.CandidatesTokenCount,
			TotalTokenCount:         u.TotalTokenCount,
		}
	}
	return out
}

func partFrom(p genai.Part) (Part, bool) {
	switch v := p.(type) {
	case genai.Text:
		return Part{Text: string(v)}, true
	case genai.Blob:
		return Part{InlineData: &InlineData{MIMEType: v.MIMEType, Data: v.Data}}, true
	case genai.FunctionCall:
		return Part{FunctionCall: &FunctionCall{Name: v.Name, Args: v.Args}}, true
	case genai.FunctionResponse:
		return Part{FunctionResponse: &FunctionResponse{Name: v.Name, Response: v.Response}}, true
	case *genai.ExecutableCode:
		return Part{ExecutableCode: &ExecutableCode{
			Language: pb.ExecutableCode_Language(v.Language).String(),
			Code:     v.Code,
		}}, true
	case *genai.CodeExecutionResult:
		return Part{CodeExecutionResult: &CodeExecutionResult{
			Outcome: pb.CodeExecutionResult_Outcome(v.Outcome).String(),
			Output:  v.Output,
		}}, true
	}
	return Part{}, false
}

func safetyRatings(in []*genai.SafetyRating) []SafetyRating {
	var out []SafetyRating
	for _, r := range in {
		if r == nil {
			continue
		}
		out = append(out, SafetyRating{
			Category:    pb.HarmCategory(r.Category).String(),
			Probability: pb.SafetyRating_HarmProbability(r.Probability).String(),
			Blocked:     r.Blocked,
		})
	}
	return out
}

func citations(in *genai.CitationMetadata) *CitationMetadata {
	if in == nil || len(in.CitationSources) == 0 {
		return nil
	}
	out := &CitationMetadata{}
	for _, src := range in.CitationSources {
		if src == nil {
			continue
		}
		out.CitationSources = append(out.CitationSources, CitationSource{
			StartIndex: src.StartIndex,
			EndIndex:   src.EndIndex,
			URI:        src.URI,
			License:    src.License,
		})
	}
	return out
}
