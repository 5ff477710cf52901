package echoapi

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/peereval/core/review"
	"github.com/trezcool/peereval/services/metrics"
)

type reviewAPI struct {
	deps ServerDeps
	auth authenticator
}

// registerReviewAPI registers the review endpoints on dg, the session detail group.
func registerReviewAPI(dg *echo.Group, faculty echo.MiddlewareFunc, auth authenticator, deps ServerDeps) {
	api := reviewAPI{deps: deps, auth: auth}

	dg.GET("/reviews/mine", api.mine)
	dg.GET("/reviews/draft", api.draft)
	dg.POST("/reviews/draft/adjust", api.adjust)
	dg.POST("/reviews", api.submit)
	dg.DELETE("/reviews", api.reset, faculty)
	dg.GET("/progress", api.progress, faculty)
	dg.GET("/progress/stream", api.stream, faculty)
}

type ResetResponse struct {
	Deleted int64 `json:"deleted"`
}

// Handlers

func (api *reviewAPI) mine(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	reviews, err := api.deps.ReviewSvc.Mine(ctx.Request().Context(), contextSession(ctx).ID, usr.Name)
	if err != nil {
		return errors.Wrap(err, "querying reviews")
	}
	if reviews == nil {
		reviews = []review.Review{}
	}
	return ctx.JSON(http.StatusOK, reviews)
}

func (api *reviewAPI) draft(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	draft, err := api.deps.ReviewSvc.Draft(ctx.Request().Context(), contextSession(ctx).ID, usr.Name)
	if err != nil {
		return errors.Wrap(err, "drafting review")
	}
	return ctx.JSON(http.StatusOK, draft)
}

func (api *reviewAPI) adjust(ctx echo.Context) error {
	var data review.Adjustment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Adjustment")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	state, err := api.deps.ReviewSvc.Adjust(data)
	if err != nil {
		return errors.Wrap(err, "adjusting share")
	}
	return ctx.JSON(http.StatusOK, state)
}

func (api *reviewAPI) submit(ctx echo.Context) error {
	var data review.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	reviews, err := api.deps.ReviewSvc.Submit(ctx.Request().Context(), contextSession(ctx).ID, usr, data)
	if err != nil {
		return errors.Wrap(err, "submitting reviews")
	}
	metrics.ReviewsSubmitted.Inc()
	return ctx.JSON(http.StatusCreated, reviews)
}

func (api *reviewAPI) reset(ctx echo.Context) error {
	n, err := api.deps.ReviewSvc.Reset(ctx.Request().Context(), contextSession(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "resetting reviews")
	}
	metrics.ReviewsReset.Add(float64(n))
	return ctx.JSON(http.StatusOK, ResetResponse{Deleted: n})
}

func (api *reviewAPI) progress(ctx echo.Context) error {
	prog, err := api.deps.ReviewSvc.Progress(ctx.Request().Context(), contextSession(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "computing progress")
	}
	return ctx.JSON(http.StatusOK, prog)
}

// stream sends the progress of a session as server-sent events: once on connect,
// then after every review event, until the client goes away.
func (api *reviewAPI) stream(ctx echo.Context) error {
	sessionID := contextSession(ctx).ID
	reqCtx := ctx.Request().Context()

	events, closeSub, err := api.deps.Broker.Subscribe(reqCtx, sessionID)
	if err != nil {
		return errors.Wrap(err, "subscribing to review events")
	}
	defer func() {
		if err := closeSub(); err != nil {
			api.deps.Logger.Warn("closing review events subscription", err)
		}
	}()

	metrics.StreamSubscribers.Inc()
	defer metrics.StreamSubscribers.Dec()

	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	if err := api.sendProgress(ctx, sessionID, "progress"); err != nil {
		return err
	}
	for {
		select {
		case <-reqCtx.Done():
			return nil
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if err := api.sendProgress(ctx, sessionID, evt.Type); err != nil {
				return err
			}
		}
	}
}

func (api *reviewAPI) sendProgress(ctx echo.Context, sessionID int64, event string) error {
	prog, err := api.deps.ReviewSvc.Progress(ctx.Request().Context(), sessionID)
	if err != nil {
		return errors.Wrap(err, "computing progress")
	}
	data, err := json.Marshal(prog)
	if err != nil {
		return errors.Wrap(err, "encoding progress")
	}

	resp := ctx.Response()
	if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return errors.Wrap(err, "writing event")
	}
	resp.Flush()
	return nil
}
