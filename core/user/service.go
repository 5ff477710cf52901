package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/peereval/core"
)

var (
	// errors
	ErrNotFound        = errors.New("user not found")
	ErrEmailExists     = errors.New("a user with this email already exists")
	ErrNameExists      = errors.New("a user with this name already exists")
	ErrAccountInactive = errors.New("account deactivated")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrNameExists or ErrEmailExists if another user, not in excludedUsers, already has name or email.
		CheckUniqueness(ctx context.Context, name, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error
		// RegisteredNames returns the names of all active users, sorted.
		RegisteredNames(ctx context.Context, exec ...core.DBExecutor) ([]string, error)
	}

	Service interface {
		CheckUniqueness(name, email string, excludedUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByName(ctx context.Context, name string) (User, error)
		RegisteredNames(ctx context.Context) ([]string, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...string) error
		RequestSignIn(ctx context.Context, email string) error
		VerifySignIn(ctx context.Context, uid, token string) (User, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		tokens  tokenGenerator
		nowFunc func() time.Time
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		tokens: tokenGenerator{
			secretKey: conf.SecretKey,
			timeout:   conf.Server.SignInTimeoutDelta,
			nowFunc:   time.Now,
		},
		nowFunc: time.Now,
	}
}

func (svc *service) now() time.Time {
	return svc.nowFunc().UTC().Truncate(time.Microsecond)
}

func (svc *service) CheckUniqueness(name, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUniqueness(context.Background(), name, email, exclUsers); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrNameExists:
			field = "name"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := svc.now()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		IsFaculty: nu.IsFaculty,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	ordering = core.OrderingIn(ordering, "name", "email", "created_at", "last_login")
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) GetByName(ctx context.Context, name string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Name: core.CleanString(name)})
}

func (svc *service) RegisteredNames(ctx context.Context) ([]string, error) {
	return svc.repo.RegisteredNames(ctx)
}

func (svc *service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.Name = uu.Name
	usr.Email = uu.Email
	if uu.IsFaculty != nil {
		usr.IsFaculty = *uu.IsFaculty
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	usr.UpdatedAt = svc.now()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = null.TimeFrom(svc.now())
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids)
}

// RequestSignIn emails a one-time sign-in link to the active user owning email.
// Unknown or deactivated emails are silently ignored.
func (svc *service) RequestSignIn(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "finding user by email")
	}
	if !usr.IsActive {
		return nil
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Sign in",
		TemplateName: "signin",
		TemplateData: map[string]string{
			"UID":   EncodeUID(usr),
			"Token": svc.tokens.makeToken(usr),
		},
	})
	return nil
}

// VerifySignIn checks a sign-in link and records the login, which invalidates the link.
func (svc *service) VerifySignIn(ctx context.Context, uid, token string) (User, error) {
	id, err := decodeUID(uid)
	if err != nil {
		return User{}, ErrInvalidToken
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidToken
		}
		return User{}, errors.Wrap(err, "finding user by ID")
	}
	if err := svc.tokens.verifyToken(usr, token); err != nil {
		return User{}, err
	}
	if !usr.IsActive {
		return User{}, ErrAccountInactive
	}

	usr, err = svc.SetLastLogin(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}
