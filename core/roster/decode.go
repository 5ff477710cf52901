package roster

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"

	"github.com/trezcool/peereval/core"
)

// SchemaJSON is the JSON schema the text-to-structure service must answer with.
const SchemaJSON = `{
  "type": "object",
  "properties": {
    "teams": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "members": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {"name": {"type": "string"}},
              "required": ["name"]
            }
          }
        },
        "required": ["name", "members"]
      }
    }
  },
  "required": ["teams"]
}`

var (
	teamSchema = mustCompileSchema(SchemaJSON)

	ErrMalformedPayload = errors.New("failed to parse the language model response")
)

type (
	payload struct {
		Teams []payloadTeam `json:"teams"`
	}

	payloadTeam struct {
		Name    string          `json:"name"`
		Members []payloadMember `json:"members"`
	}

	payloadMember struct {
		Name string `json:"name"`
	}
)

// Decode checks raw against SchemaJSON and maps it to a TeamSet.
// Names are trimmed; nothing else is altered, validation is left to Validate.
func Decode(raw []byte) (TeamSet, error) {
	res, err := teamSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, errors.Wrap(ErrMalformedPayload, err.Error())
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, errors.Wrap(ErrMalformedPayload, strings.Join(msgs, "; "))
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(ErrMalformedPayload, err.Error())
	}

	teams := make(TeamSet, 0, len(p.Teams))
	for _, pt := range p.Teams {
		t := Team{Name: core.CleanString(pt.Name), Members: make([]string, 0, len(pt.Members))}
		for _, pm := range pt.Members {
			t.Members = append(t.Members, core.CleanString(pm.Name))
		}
		teams = append(teams, t)
	}
	return teams, nil
}

func mustCompileSchema(s string) *gojsonschema.Schema {
	sch, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(err)
	}
	return sch
}
