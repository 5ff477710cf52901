package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/peereval/core/session"
)

const contextSessionKey = "session"

// facultyMiddleware checks the stored account, not the token claims.
func facultyMiddleware(auth authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := auth.contextUser(ctx)
			if err != nil {
				return err
			}
			if usr.IsFaculty {
				return next(ctx)
			}
			return errHTTPForbidden
		}
	}
}

// sessionMiddleware loads the session of the ":id" path param.
func sessionMiddleware(svc session.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
			if err != nil || id <= 0 {
				return errHTTPNotFound
			}
			sess, err := svc.Get(ctx.Request().Context(), id)
			if err != nil {
				if errors.Cause(err) == session.ErrNotFound {
					return errHTTPNotFound
				}
				return errors.Wrap(err, "getting session")
			}
			ctx.Set(contextSessionKey, sess)
			return next(ctx)
		}
	}
}

func contextSession(ctx echo.Context) session.Session {
	sess, _ := ctx.Get(contextSessionKey).(session.Session)
	return sess
}
