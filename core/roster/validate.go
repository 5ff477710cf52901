// Package roster turns free-text team rosters into validated team sets.
package roster

import (
	"fmt"
	"strings"
)

// MinTeamSize is the smallest team size that does not produce a warning.
const MinTeamSize = 2

type (
	// Team is one named group of members.
	Team struct {
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}

	// TeamSet is an ordered list of teams, as parsed from a roster text.
	TeamSet []Team
)

// MemberCount returns the number of member occurrences across all teams.
func (ts TeamSet) MemberCount() int {
	n := 0
	for _, t := range ts {
		n += len(t.Members)
	}
	return n
}

// Validate returns human-readable warnings about teams, checked against the registered names.
// It never fails and never modifies teams.
// Warnings are grouped by check, in this order:
// small teams, unregistered members, members in several teams, duplicates within a team, duplicate team names.
func Validate(teams TeamSet, registered []string) []string {
	warnings := make([]string, 0)

	for _, t := range teams {
		if len(t.Members) < MinTeamSize {
			warnings = append(warnings, fmt.Sprintf("team %q has fewer than %d members", t.Name, MinTeamSize))
		}
	}

	known := make(map[string]struct{}, len(registered))
	for _, name := range registered {
		known[name] = struct{}{}
	}
	for _, t := range teams {
		for _, m := range t.Members {
			if _, ok := known[m]; !ok {
				warnings = append(warnings, fmt.Sprintf("team %q's member %q is not a registered name", t.Name, m))
			}
		}
	}

	return append(warnings, Conflicts(teams)...)
}

// Conflicts returns the warnings about members in several teams, duplicates within a team
// and duplicate team names: the ones a stored roster cannot represent.
func Conflicts(teams TeamSet) []string {
	warnings := make([]string, 0)

	// member -> indexes of the teams they appear in, members in first-appearance order
	var order []string
	memberTeams := make(map[string][]int)
	for i, t := range teams {
		for _, m := range t.Members {
			idxs, ok := memberTeams[m]
			if !ok {
				order = append(order, m)
			}
			if len(idxs) == 0 || idxs[len(idxs)-1] != i {
				memberTeams[m] = append(idxs, i)
			}
		}
	}
	for _, m := range order {
		idxs := memberTeams[m]
		if len(idxs) < 2 {
			continue
		}
		names := make([]string, len(idxs))
		for j, i := range idxs {
			names[j] = teams[i].Name
		}
		warnings = append(warnings, fmt.Sprintf("member %q is duplicated across teams: %s", m, strings.Join(names, ", ")))
	}

	for _, t := range teams {
		seen := make(map[string]struct{}, len(t.Members))
		for _, m := range t.Members {
			if _, ok := seen[m]; ok {
				warnings = append(warnings, fmt.Sprintf("team %q has duplicate member %q", t.Name, m))
			}
			seen[m] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(teams))
	for _, t := range teams {
		if _, ok := seen[t.Name]; ok {
			warnings = append(warnings, fmt.Sprintf("duplicate team name %q", t.Name))
		}
		seen[t.Name] = struct{}{}
	}

	return warnings
}
