package roster

import (
	"context"

	"github.com/pkg/errors"
)

type (
	// Parser turns a free-text roster into the JSON document described by SchemaJSON.
	Parser interface {
		ParseTeams(ctx context.Context, text string, registered []string) ([]byte, error)
	}

	// NameSource lists the registered member names.
	NameSource interface {
		RegisteredNames(ctx context.Context) ([]string, error)
	}

	ParseResult struct {
		Teams       TeamSet      `json:"teams"`
		Warnings    []string     `json:"warnings"`
		Suggestions []Suggestion `json:"suggestions"`
	}

	Service struct {
		parser Parser
		names  NameSource
	}
)

func NewService(parser Parser, names NameSource) *Service {
	return &Service{parser: parser, names: names}
}

// Parse extracts the teams of text and validates them against the registered names.
// A response that cannot be decoded yields no teams and a warning, not an error;
// failing to reach the parser is an error.
func (svc *Service) Parse(ctx context.Context, text string) (ParseResult, error) {
	registered, err := svc.names.RegisteredNames(ctx)
	if err != nil {
		return ParseResult{}, errors.Wrap(err, "listing registered names")
	}

	raw, err := svc.parser.ParseTeams(ctx, text, registered)
	if err != nil {
		return ParseResult{}, errors.Wrap(err, "parsing teams")
	}

	res := ParseResult{Teams: TeamSet{}, Suggestions: []Suggestion{}}
	teams, err := Decode(raw)
	if err != nil {
		res.Warnings = []string{ErrMalformedPayload.Error()}
		return res, nil
	}
	res.Teams = teams
	res.Warnings = Validate(teams, registered)
	res.Suggestions = Suggest(teams, registered)
	return res, nil
}

// Check validates teams against the registered names.
func (svc *Service) Check(ctx context.Context, teams TeamSet) ([]string, error) {
	registered, err := svc.names.RegisteredNames(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing registered names")
	}
	return Validate(teams, registered), nil
}
