package roster

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    TeamSet
		wantErr bool
	}{
		{
			name: "valid payload",
			raw:  `{"teams":[{"name":" 1팀 ","members":[{"name":"철수"},{"name":" 영희"}]},{"name":"2팀","members":[]}]}`,
			want: TeamSet{
				{Name: "1팀", Members: []string{"철수", "영희"}},
				{Name: "2팀", Members: []string{}},
			},
		},
		{name: "no teams", raw: `{"teams":[]}`, want: TeamSet{}},
		{name: "extra fields are ignored", raw: `{"teams":[{"name":"A","members":[{"name":"x","role":"lead"}]}],"note":"ok"}`,
			want: TeamSet{{Name: "A", Members: []string{"x"}}}},
		{name: "not json", raw: `teams: A`, wantErr: true},
		{name: "empty", raw: ``, wantErr: true},
		{name: "missing teams", raw: `{}`, wantErr: true},
		{name: "members as strings", raw: `{"teams":[{"name":"A","members":["x","y"]}]}`, wantErr: true},
		{name: "missing member name", raw: `{"teams":[{"name":"A","members":[{}]}]}`, wantErr: true},
		{name: "numeric team name", raw: `{"teams":[{"name":1,"members":[]}]}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ErrMalformedPayload, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
