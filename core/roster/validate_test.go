package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	registered := []string{"철수", "영희", "민수", "지영"}

	tests := []struct {
		name       string
		teams      TeamSet
		registered []string
		want       []string
	}{
		{
			name:       "valid team",
			teams:      TeamSet{{Name: "1팀", Members: []string{"철수", "영희"}}},
			registered: []string{"철수", "영희"},
			want:       []string{},
		},
		{name: "no teams", teams: nil, registered: registered, want: []string{}},
		{
			name:       "team too small",
			teams:      TeamSet{{Name: "1팀", Members: []string{"철수"}}},
			registered: registered,
			want:       []string{`team "1팀" has fewer than 2 members`},
		},
		{
			name:       "team too small and member not registered",
			teams:      TeamSet{{Name: "1팀", Members: []string{"철수"}}},
			registered: []string{"영희"},
			want: []string{
				`team "1팀" has fewer than 2 members`,
				`team "1팀"'s member "철수" is not a registered name`,
			},
		},
		{
			name: "member in two teams",
			teams: TeamSet{
				{Name: "1팀", Members: []string{"철수", "영희"}},
				{Name: "2팀", Members: []string{"민수", "철수"}},
			},
			registered: registered,
			want:       []string{`member "철수" is duplicated across teams: 1팀, 2팀`},
		},
		{
			name:       "member twice in one team",
			teams:      TeamSet{{Name: "1팀", Members: []string{"철수", "영희", "철수"}}},
			registered: registered,
			want:       []string{`team "1팀" has duplicate member "철수"`},
		},
		{
			name: "duplicate team name",
			teams: TeamSet{
				{Name: "1팀", Members: []string{"철수", "영희"}},
				{Name: "1팀", Members: []string{"민수", "지영"}},
			},
			registered: registered,
			want:       []string{`duplicate team name "1팀"`},
		},
		{
			name: "warnings are grouped by check",
			teams: TeamSet{
				{Name: "A", Members: []string{"철수", "Ghost", "철수"}},
				{Name: "B", Members: []string{"영희"}},
				{Name: "A", Members: []string{"영희", "철수"}},
			},
			registered: registered,
			want: []string{
				`team "B" has fewer than 2 members`,
				`team "A"'s member "Ghost" is not a registered name`,
				`member "철수" is duplicated across teams: A, A`,
				`member "영희" is duplicated across teams: B, A`,
				`team "A" has duplicate member "철수"`,
				`duplicate team name "A"`,
			},
		},
		{
			name:       "every occurrence of an unregistered member is reported",
			teams:      TeamSet{{Name: "1팀", Members: []string{"X", "X"}}},
			registered: registered,
			want: []string{
				`team "1팀"'s member "X" is not a registered name`,
				`team "1팀"'s member "X" is not a registered name`,
				`team "1팀" has duplicate member "X"`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.teams, tt.registered)
			assert.Equal(t, tt.want, got)

			// deterministic
			assert.Equal(t, got, Validate(tt.teams, tt.registered))
		})
	}
}

func TestValidate_doesNotModifyInput(t *testing.T) {
	teams := TeamSet{{Name: "1팀", Members: []string{"철수", "철수"}}}
	_ = Validate(teams, nil)
	assert.Equal(t, TeamSet{{Name: "1팀", Members: []string{"철수", "철수"}}}, teams)
}

func TestTeamSet_MemberCount(t *testing.T) {
	teams := TeamSet{{Name: "1팀", Members: []string{"a", "b"}}, {Name: "2팀", Members: []string{"c"}}}
	assert.Equal(t, 3, teams.MemberCount())
}

func TestConflicts(t *testing.T) {
	teams := TeamSet{
		{Name: "A", Members: []string{"x"}},
		{Name: "B", Members: []string{"y", "x", "y"}},
		{Name: "B", Members: []string{"z", "w"}},
	}

	assert.Equal(t, []string{
		`member "x" is duplicated across teams: A, B`,
		`team "B" has duplicate member "y"`,
		`duplicate team name "B"`,
	}, Conflicts(teams))
	assert.Empty(t, Conflicts(TeamSet{{Name: "A", Members: []string{"x"}}}))
}
