package llm

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/roster"
)

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(text, genai.RoleModel)}},
	}
}

func TestGeminiParser_ParseTeams(t *testing.T) {
	const answer = `{"teams":[{"name":"1팀","members":[{"name":"김철수"},{"name":"이영희"}]}]}`

	var (
		gotModel  string
		gotPrompt string
		gotConfig *genai.GenerateContentConfig
	)
	p := &GeminiParser{
		model: "gemini-test",
		generate: func(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			gotModel = model
			gotPrompt = contents[0].Parts[0].Text
			gotConfig = config
			return textResponse(answer), nil
		},
	}

	raw, err := p.ParseTeams(context.Background(), "1팀: 김철수, 이영희", []string{"김철수", "이영희"})
	require.NoError(t, err)
	assert.JSONEq(t, answer, string(raw))

	assert.Equal(t, "gemini-test", gotModel)
	assert.Contains(t, gotPrompt, "1팀: 김철수, 이영희")
	assert.Contains(t, gotPrompt, `["김철수","이영희"]`)
	assert.Equal(t, "application/json", gotConfig.ResponseMIMEType)
	assert.Equal(t, float32(0), *gotConfig.Temperature)
	assert.Equal(t, []string{"teams"}, gotConfig.ResponseSchema.Required)

	teams, err := roster.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, roster.TeamSet{{Name: "1팀", Members: []string{"김철수", "이영희"}}}, teams)
}

func TestGeminiParser_ParseTeams_error(t *testing.T) {
	p := &GeminiParser{
		model: "gemini-test",
		generate: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, errors.New("quota exceeded")
		},
	}
	_, err := p.ParseTeams(context.Background(), "text", nil)
	assert.EqualError(t, err, "generating content: quota exceeded")
}

func TestGeminiParser_timeout(t *testing.T) {
	p := &GeminiParser{
		model:   "gemini-test",
		timeout: 1,
		generate: func(ctx context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	_, err := p.ParseTeams(context.Background(), "text", nil)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewGeminiParser_notConfigured(t *testing.T) {
	_, err := NewGeminiParser(context.Background(), &core.Config{})
	assert.Equal(t, ErrNotConfigured, err)
}

func TestUnconfigured(t *testing.T) {
	raw, err := Unconfigured{}.ParseTeams(context.Background(), "text", nil)
	assert.Nil(t, raw)
	assert.Equal(t, ErrNotConfigured, err)
}
