package review

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/allocation"
	"github.com/trezcool/peereval/core/session"
)

// Event types published when the reviews of a session change.
const (
	EventSubmitted = "review.submitted"
	EventReset     = "review.reset"
)

// Entry is what a member says about one teammate, themselves included.
type Entry struct {
	PeerName    string      `json:"peer_name" validate:"required"`
	ContribRate int         `json:"contrib_rate" validate:"min=0,max=100"`
	IsFit       null.Bool   `json:"is_fit"`
	Description null.String `json:"description"`
}

type Review struct {
	SessionID   int64       `json:"session_id" db:"session_id"`
	UserName    string      `json:"user_name" db:"user_name"`
	PeerName    string      `json:"peer_name" db:"peer_name"`
	ContribRate int         `json:"contrib_rate" db:"contrib_rate"`
	IsFit       null.Bool   `json:"is_fit" db:"is_fit"`
	Description null.String `json:"description" db:"description"`
	SubmittedAt time.Time   `json:"submitted_at" db:"submitted_at"` // UTC
}

type Submission struct {
	Entries []Entry `json:"entries" validate:"required,min=1,dive"`
}

func (s *Submission) Validate(validate *validator.Validate) error {
	for i := range s.Entries {
		s.Entries[i].PeerName = core.CleanString(s.Entries[i].PeerName)
		if s.Entries[i].Description.Valid {
			s.Entries[i].Description.String = core.CleanString(s.Entries[i].Description.String)
		}
	}
	return validate.Struct(s)
}

// Draft is the starting point of a member's review form.
type Draft struct {
	SessionID int64            `json:"session_id"`
	Team      string           `json:"team"`
	State     allocation.State `json:"state"`
	Fit       map[string]bool  `json:"fit"`
	Submitted bool             `json:"submitted"`
}

// Adjustment changes one share of a draft State.
type Adjustment struct {
	State  allocation.State `json:"state"`
	Member string           `json:"member" validate:"required"`
	Value  *int             `json:"value" validate:"required,min=0,max=100"`
}

func (a *Adjustment) Validate(validate *validator.Validate) error {
	return validate.Struct(a)
}

// Progress is the faculty's view of a session's submissions.
type Progress struct {
	Session session.Session `json:"session"`
	Teams   []TeamProgress  `json:"teams"`
	Members int             `json:"members"`
	Voted   int             `json:"voted"`
	Reviews []Review        `json:"reviews"`
}

type TeamProgress struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
	Voted   []string `json:"voted"`
}

// Event tells subscribers that the reviews of a session changed.
type Event struct {
	Type      string    `json:"type"`
	SessionID int64     `json:"session_id"`
	UserName  string    `json:"user_name,omitempty"`
	At        time.Time `json:"at"`
}
