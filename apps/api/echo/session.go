package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/peereval/core/roster"
	"github.com/trezcool/peereval/core/session"
	"github.com/trezcool/peereval/services/metrics"
)

type sessionAPI struct {
	deps ServerDeps
	auth authenticator
}

// registerSessionAPI registers the session endpoints: sg is the authed "/sessions" group
// and dg its "/:id" detail group.
func registerSessionAPI(g, sg, dg *echo.Group, jwt, faculty echo.MiddlewareFunc, auth authenticator, deps ServerDeps) {
	api := sessionAPI{deps: deps, auth: auth}

	g.POST("/teams/parse", api.parseTeams, jwt, faculty)

	sg.GET("/active", api.active)
	sg.GET("", api.query, faculty)
	sg.POST("", api.create, faculty)
	sg.POST("/stop", api.stopBeacon, faculty)

	// detail endpoints
	dg.GET("/info", api.info)
	dg.GET("/teams", api.teams)
	dg.PUT("", api.update, faculty)
	dg.DELETE("", api.destroy, faculty)
	dg.POST("/start", api.start, faculty)
	dg.POST("/stop", api.stop, faculty)
	dg.POST("/toggle", api.toggle, faculty)
	dg.PUT("/teams", api.replaceTeams, faculty)
}

type (
	ParseTeamsRequest struct {
		Text string `json:"text" validate:"required,max=20000"`
	}

	// StopRequest is sent by browsers leaving the faculty page, with navigator.sendBeacon.
	StopRequest struct {
		SessionID int64 `json:"sessionId" validate:"required,gt=0"`
	}

	StopResponse struct {
		Success bool `json:"success"`
	}
)

// Handlers

func (api *sessionAPI) active(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	sessions, err := api.deps.SessionSvc.ActiveFor(ctx.Request().Context(), usr.Name)
	if err != nil {
		return errors.Wrap(err, "querying active sessions")
	}
	if sessions == nil {
		sessions = []session.ActiveSession{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionAPI) query(ctx echo.Context) error {
	sessions, err := api.deps.SessionSvc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionAPI) create(ctx echo.Context) error {
	var data session.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	sess, err := api.deps.SessionSvc.Create(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *sessionAPI) info(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, contextSession(ctx))
}

// teams lists every team to faculty, and only their own team to other users.
func (api *sessionAPI) teams(ctx echo.Context) error {
	sess := contextSession(ctx)
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	if usr.IsFaculty {
		teams, err := api.deps.SessionSvc.Teams(ctx.Request().Context(), sess.ID)
		if err != nil {
			return errors.Wrap(err, "querying teams")
		}
		return ctx.JSON(http.StatusOK, teams)
	}

	team, err := api.deps.SessionSvc.TeamOf(ctx.Request().Context(), sess.ID, usr.Name)
	if err != nil {
		return errors.Wrap(err, "finding team")
	}
	return ctx.JSON(http.StatusOK, roster.TeamSet{team})
}

func (api *sessionAPI) update(ctx echo.Context) error {
	var data session.UpdateSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSession")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sess, err := api.deps.SessionSvc.Update(ctx.Request().Context(), contextSession(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "updating session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionAPI) destroy(ctx echo.Context) error {
	if err := api.deps.SessionSvc.Delete(ctx.Request().Context(), contextSession(ctx).ID); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionAPI) start(ctx echo.Context) error {
	sess, err := api.deps.SessionSvc.Start(ctx.Request().Context(), contextSession(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionAPI) stop(ctx echo.Context) error {
	sess, err := api.deps.SessionSvc.Stop(ctx.Request().Context(), contextSession(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "stopping session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionAPI) toggle(ctx echo.Context) error {
	sess, err := api.deps.SessionSvc.Toggle(ctx.Request().Context(), contextSession(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "toggling session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionAPI) stopBeacon(ctx echo.Context) error {
	var data StopRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StopRequest")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	if _, err := api.deps.SessionSvc.Stop(ctx.Request().Context(), data.SessionID); err != nil {
		return errors.Wrap(err, "stopping session")
	}
	return ctx.JSON(http.StatusOK, StopResponse{Success: true})
}

func (api *sessionAPI) parseTeams(ctx echo.Context) error {
	var data ParseTeamsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ParseTeamsRequest")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	res, err := api.deps.RosterSvc.Parse(ctx.Request().Context(), data.Text)
	if err != nil {
		metrics.ObserveParse(metrics.ParseFailed, 0)
		return errors.Wrap(err, "parsing roster")
	}
	metrics.ObserveParse(parseOutcome(res), len(res.Warnings))

	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	return ctx.JSON(http.StatusOK, res)
}

func parseOutcome(res roster.ParseResult) string {
	switch {
	case len(res.Warnings) == 1 && res.Warnings[0] == roster.ErrMalformedPayload.Error():
		return metrics.ParseMalformed
	case len(res.Warnings) > 0:
		return metrics.ParseWarnings
	}
	return metrics.ParseOK
}

func (api *sessionAPI) replaceTeams(ctx echo.Context) error {
	var data session.UpdateTeams
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeams")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	res, err := api.deps.SessionSvc.ReplaceTeams(ctx.Request().Context(), contextSession(ctx).ID, data.Teams, data.Force)
	if err != nil {
		return errors.Wrap(err, "replacing teams")
	}
	return ctx.JSON(http.StatusOK, res)
}
