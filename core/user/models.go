package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/peereval/core"
)

// User is a registered person. Only registered names can be put on a team.
type User struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	IsFaculty bool      `json:"is_faculty" db:"is_faculty"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin null.Time `json:"last_login" db:"last_login"` // UTC
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name      string `json:"name" validate:"required,personname"`
	Email     string `json:"email" validate:"required,email"`
	IsFaculty bool   `json:"is_faculty"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Name, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name      string `json:"name" validate:"omitempty,personname"`
	Email     string `json:"email" validate:"omitempty,email"`
	IsFaculty *bool  `json:"is_faculty"`
	IsActive  *bool  `json:"is_active"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc Service) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Name, uu.Email, origUsr)
}

type SignInRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (sr *SignInRequest) Validate(validate *validator.Validate) error {
	sr.Email = core.CleanString(sr.Email, true /* lower */)
	return validate.Struct(sr)
}

type VerifySignIn struct {
	UID   string `json:"uid" validate:"required"`
	Token string `json:"token" validate:"required"`
}

func (vs *VerifySignIn) Validate(validate *validator.Validate) error {
	vs.UID = core.CleanString(vs.UID)
	vs.Token = core.CleanString(vs.Token)
	return validate.Struct(vs)
}

type QueryFilter struct {
	Search    string `query:"search"`
	IsFaculty *bool  `query:"is_faculty"`
	IsActive  *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.IsFaculty == nil && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects one User; the first non-empty field wins.
type GetFilter struct {
	ID    string
	Email string
	Name  string
}
