package session

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/roster"
)

// Status of a Session: reviews can only be submitted while it is open.
type Status int

const (
	StatusStopped Status = 0
	StatusOpen    Status = 1
)

func (s Status) String() string {
	if s == StatusOpen {
		return "open"
	}
	return "stopped"
}

type Session struct {
	ID          int64       `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Description null.String `json:"description" db:"description"`
	Status      Status      `json:"status" db:"status"`
	CreatedBy   null.String `json:"created_by" db:"created_by"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

func (s Session) IsOpen() bool { return s.Status == StatusOpen }

// Member is one row of a session's roster.
type Member struct {
	SessionID int64  `db:"session_id"`
	TeamName  string `db:"team_name"`
	UserName  string `db:"user_name"`
}

// ActiveSession is an open session the user is on a team of.
type ActiveSession struct {
	SessionID          int64       `json:"session_id" db:"session_id"`
	SessionName        string      `json:"session_name" db:"session_name"`
	SessionDescription null.String `json:"session_description" db:"session_description"`
	Status             Status      `json:"status" db:"status"`
	SessionCreatedAt   time.Time   `json:"session_created_at" db:"session_created_at"`
	TeamName           string      `json:"team_name" db:"team_name"`
	UserName           string      `json:"user_name" db:"user_name"`
}

// ReplaceResult counts what a roster replacement stored.
type ReplaceResult struct {
	InsertedTeams   int `json:"inserted_teams"`
	InsertedMembers int `json:"inserted_members"`
}

type NewSession struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
	return validate.Struct(ns)
}

// UpdateSession defines what information may be provided to modify an existing Session.
type UpdateSession struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

func (us *UpdateSession) Validate(validate *validator.Validate) error {
	if us.Name != nil {
		name := core.CleanString(*us.Name)
		us.Name = &name
	}
	if us.Description != nil {
		desc := core.CleanString(*us.Description)
		us.Description = &desc
	}
	return validate.Struct(us)
}

type UpdateTeams struct {
	Teams roster.TeamSet `json:"teams" validate:"required,dive"`
	Force bool           `json:"force"`
}

func (ut *UpdateTeams) Validate(validate *validator.Validate) error {
	for i := range ut.Teams {
		ut.Teams[i].Name = core.CleanString(ut.Teams[i].Name)
		for j := range ut.Teams[i].Members {
			ut.Teams[i].Members[j] = core.CleanString(ut.Teams[i].Members[j])
		}
	}
	return validate.Struct(ut)
}
