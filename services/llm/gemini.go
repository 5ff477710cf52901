// Package llm turns free-text rosters into structured teams with a language model.
package llm

import (
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/roster"
	"github.com/trezcool/peereval/services/metrics"
)

const systemInstruction = "You convert free-text team rosters into JSON. " +
	"Keep team and member names exactly as written, do not translate or invent them, " +
	"and answer with JSON only."

var ErrNotConfigured = errors.New("the language model API key is not configured")

// teamSchema mirrors roster.SchemaJSON.
var teamSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"teams": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name": {Type: genai.TypeString},
					"members": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type:       genai.TypeObject,
							Properties: map[string]*genai.Schema{"name": {Type: genai.TypeString}},
							Required:   []string{"name"},
						},
					},
				},
				Required: []string{"name", "members"},
			},
		},
	},
	Required: []string{"teams"},
}

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiParser implements roster.Parser with the Gemini API.
type GeminiParser struct {
	model    string
	timeout  time.Duration
	generate generateFunc
}

var _ roster.Parser = (*GeminiParser)(nil)

func NewGeminiParser(ctx context.Context, conf *core.Config) (*GeminiParser, error) {
	if conf.LLM.APIKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  conf.LLM.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating genai client")
	}
	return &GeminiParser{
		model:    conf.LLM.Model,
		timeout:  conf.LLM.Timeout,
		generate: client.Models.GenerateContent,
	}, nil
}

// prompt embeds the registered names so the model can keep their exact spelling.
func prompt(text string, registered []string) (string, error) {
	names, err := json.Marshal(registered)
	if err != nil {
		return "", errors.Wrap(err, "encoding registered names")
	}
	var b strings.Builder
	b.WriteString("Convert the roster below to the JSON schema of the response.\n")
	b.WriteString("Each team has a name and a list of members; each member has a name.\n")
	b.WriteString("Registered names, for reference only: ")
	b.Write(names)
	b.WriteString("\n\nRoster:\n")
	b.WriteString(text)
	return b.String(), nil
}

// ParseTeams returns the raw JSON answered by the model. It is not checked here: see roster.Decode.
func (p *GeminiParser) ParseTeams(ctx context.Context, text string, registered []string) (raw []byte, err error) {
	msg, err := prompt(text, registered)
	if err != nil {
		return nil, err
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() { metrics.ObserveLLM(p.model, start, err) }()

	resp, err := p.generate(
		ctx,
		p.model,
		[]*genai.Content{genai.NewContentFromText(msg, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    teamSchema,
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "generating content")
	}
	return []byte(resp.Text()), nil
}

// Unconfigured is the roster.Parser used when no API key is set: every parse fails with ErrNotConfigured.
type Unconfigured struct{}

var _ roster.Parser = Unconfigured{}

func (Unconfigured) ParseTeams(context.Context, string, []string) ([]byte, error) {
	return nil, ErrNotConfigured
}
