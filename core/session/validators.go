package session

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/roster"
)

var (
	teamNameTag  = "teamname"
	teamNameText = "team names must be printable names of at most 64 characters"

	memberNameTag  = "membername"
	memberNameText = "member names must be printable names of at most 64 characters"
)

// InitValidators registers the session validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(teamStructValidation, roster.Team{})
	core.RegisterCustomTranslation(validate, translator, teamNameTag, teamNameText)
	core.RegisterCustomTranslation(validate, translator, memberNameTag, memberNameText)
}

// teamStructValidation checks the name and the member names of a roster.Team.
func teamStructValidation(sl validator.StructLevel) {
	team, ok := sl.Current().Interface().(roster.Team)
	if !ok {
		return
	}
	if !core.IsPersonName(team.Name) {
		sl.ReportError(team.Name, "name", "Name", teamNameTag, "")
	}
	for _, m := range team.Members {
		if !core.IsPersonName(m) {
			sl.ReportError(team.Members, "members", "Members", memberNameTag, "")
			return
		}
	}
}
