package gateway

import "context"

// GenerationRequest is the body of POST /generate.
type GenerationRequest struct {
	Prompt     string `json:"prompt"`
	Structured bool   `json:"isJsonMode,omitempty"`
}

// GenerationResponse mirrors the provider's response envelope.
type GenerationResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
}

type Candidate struct {
	Content          Content           `json:"content"`
	FinishReason     string            `json:"finishReason,omitempty"`
	Index            int32             `json:"index"`
	SafetyRatings    []SafetyRating    `json:"safetyRatings,omitempty"`
	CitationMetadata *CitationMetadata `json:"citationMetadata,omitempty"`
	TokenCount       int32             `json:"tokenCount,omitempty"`
}

type SafetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
	Blocked     bool   `json:"blocked,omitempty"`
}

type CitationMetadata struct {
	CitationSources []CitationSource `json:"citationSources"`
}

type CitationSource struct {
	StartIndex *int32  `json:"startIndex,omitempty"`
	EndIndex   *int32  `json:"endIndex,omitempty"`
	URI        *string `json:"uri,omitempty"`
	License    string  `json:"license,omitempty"`
}

type PromptFeedback struct {
	BlockReason   string         `json:"blockReason,omitempty"`
	SafetyRatings []SafetyRating `json:"safetyRatings,omitempty"`
}

type Content struct {
	Parts []Part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

// Part holds exactly one of its fields, like the provider's part union.
type Part struct {
	Text                string               `json:"text,omitempty"`
	InlineData          *InlineData          `json:"inlineData,omitempty"`
	FunctionCall        *FunctionCall        `json:"functionCall,omitempty"`
	FunctionResponse    *FunctionResponse    `json:"functionResponse,omitempty"`
	ExecutableCode      *ExecutableCode      `json:"executableCode,omitempty"`
	CodeExecutionResult *CodeExecutionResult `json:"codeExecutionResult,omitempty"`
}

type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitempty"`
}

type ExecutableCode struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

type CodeExecutionResult struct {
	Outcome string `json:"outcome"`
	Output  string `json:"output,omitempty"`
}

type UsageMetadata struct {
	PromptTokenCount        int32 `json:"promptTokenCount"`
	CachedContentTokenCount int32 `json:"cachedContentTokenCount,omitempty"`
	CandidatesTokenCount    int32 `json:"candidatesTokenCount"`
	TotalTokenCount         int32 `json:"totalTokenCount"`
}

// ErrorResponse is the body of every non-success gateway answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Text returns the first text part of the first candidate, or "".
func (r *GenerationResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	for _, p := range r.Candidates[0].Content.Parts {
		if p.Text != "" {
			return p.Text
		}
	}
	return ""
}

// TextResponse builds a single-candidate envelope. Used by fakes and tests.
func TextResponse(text string) *GenerationResponse {
	return &GenerationResponse{
		Candidates: []Candidate{{
			Content:      Content{Parts: []Part{{Text: text}}, Role: "model"},
			FinishReason: "STOP",
		}},
	}
}

// Generator is anything that can answer a GenerationRequest: the in-process
// Gateway or the HTTP Client.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)

func (f GeneratorFunc) Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error) {
	return f(ctx, req)
}
