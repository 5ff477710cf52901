package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/peereval/core/user"
)

const signInSent = "If the email address supplied is associated with an active account on this system, " +
	"an email will arrive in your inbox shortly with a sign-in link."

type userAPI struct {
	deps ServerDeps
	auth authenticator
}

func registerUserAPI(g *echo.Group, jwt, faculty echo.MiddlewareFunc, auth authenticator, deps ServerDeps) {
	api := userAPI{deps: deps, auth: auth}

	// un-authed endpoints
	ag := g.Group("/auth")
	ag.POST("/signin", api.signIn)
	ag.POST("/verify", api.verify)

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, jwt)
	ag.GET("/me", api.me, jwt)

	ug := g.Group("/users", jwt, faculty)
	ug.GET("", api.query)
	ug.POST("", api.create)
	ug.GET("/names", api.names)
	ug.PUT("/:id", api.update)
	ug.DELETE("/:id", api.destroy)
}

// Handlers

func (api *userAPI) signIn(ctx echo.Context) error {
	var data user.SignInRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SignInRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.deps.UserSvc.RequestSignIn(ctx.Request().Context(), data.Email); err != nil {
		// do not return errors to attackers
		api.deps.Logger.Error("requesting sign-in", errors.Wrap(err, "requesting sign-in"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: signInSent})
}

func (api *userAPI) verify(ctx echo.Context) error {
	var data user.VerifySignIn
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifySignIn")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	token, err := api.auth.verify(ctx, data.UID, data.Token)
	if err != nil {
		return errors.Wrap(err, "verifying sign-in")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userAPI) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userAPI) me(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userAPI) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.deps.UserSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userAPI) names(ctx echo.Context) error {
	names, err := api.deps.UserSvc.RegisteredNames(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing registered names")
	}
	if names == nil {
		names = []string{}
	}
	return ctx.JSON(http.StatusOK, names)
}

func (api *userAPI) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.deps.Validate, api.deps.UserSvc); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userAPI) update(ctx echo.Context) error {
	usr, err := api.deps.UserSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err := data.Validate(usr, api.deps.Validate, api.deps.UserSvc); err != nil {
		return err
	}

	// faculty cannot lock themselves out
	ctxUsr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	if usr.ID == ctxUsr.ID && ((data.IsActive != nil && !*data.IsActive) || (data.IsFaculty != nil && !*data.IsFaculty)) {
		return errHTTPForbidden
	}

	usr, err = api.deps.UserSvc.Update(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userAPI) destroy(ctx echo.Context) error {
	usr, err := api.deps.UserSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	if usr.ID == ctxUsr.ID {
		return errHTTPForbidden
	}

	if err := api.deps.UserSvc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}
