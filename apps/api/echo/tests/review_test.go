package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/peereval/core/allocation"
	"github.com/trezcool/peereval/core/review"
	"github.com/trezcool/peereval/core/session"
	testutil "github.com/trezcool/peereval/tests"
)

func Test_reviewAPI_draft(t *testing.T) {
	f := setupSessions(t)
	kimToken := getToken(t, f.conf, f.kim)

	f.run(t, []httpTest{
		{name: "auth required", path: f.path + "/reviews/draft", wantCode: http.StatusUnauthorized},
		{
			name: "not on a team", path: f.path + "/reviews/draft", token: getToken(t, f.conf, f.park),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: session.ErrNotTeamMember.Error()}),
		},
		{
			name: "even split", path: f.path + "/reviews/draft", token: kimToken,
			wantData: marchallObj(t, review.Draft{
				SessionID: f.sess.ID,
				Team:      "Team 1",
				State:     allocation.State{Shares: []allocation.Share{{Member: "김철수", Value: 50}, {Member: "이영희", Value: 50}}},
				Fit:       map[string]bool{"이영희": false},
			}),
		},
	})

	testutil.AddReviews(t, f.revRepo, f.sess.ID, "김철수", map[string]int{"김철수": 70, "이영희": 30})
	f.run(t, []httpTest{
		{
			name: "previous rates", path: f.path + "/reviews/draft", token: kimToken,
			wantData: marchallObj(t, review.Draft{
				SessionID: f.sess.ID,
				Team:      "Team 1",
				State:     allocation.State{Shares: []allocation.Share{{Member: "김철수", Value: 70}, {Member: "이영희", Value: 30}}},
				Fit:       map[string]bool{"이영희": true},
				Submitted: true,
			}),
		},
	})
}

func Test_reviewAPI_adjust(t *testing.T) {
	f := setupSessions(t)
	kimToken := getToken(t, f.conf, f.kim)
	path := f.path + "/reviews/draft/adjust"
	state := allocation.State{Shares: []allocation.Share{
		{Member: "김철수", Value: 34}, {Member: "이영희", Value: 33}, {Member: "박민수", Value: 33},
	}}

	f.run(t, []httpTest{
		{
			name: "value out of range", method: http.MethodPost, path: path, token: kimToken,
			body: marchallObj(t, echo.Map{"state": state, "member": "김철수", "value": 101}), wantCode: http.StatusBadRequest,
		},
		{
			name: "value required", method: http.MethodPost, path: path, token: kimToken,
			body: marchallObj(t, echo.Map{"state": state, "member": "김철수"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"value": "this field is required"}),
		},
		{
			name: "unknown member", method: http.MethodPost, path: path, token: kimToken,
			body: marchallObj(t, echo.Map{"state": state, "member": "Nobody", "value": 10}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"member": `"Nobody": ` + allocation.ErrUnknownMember.Error()}),
		},
		{
			name: "even re-split", method: http.MethodPost, path: path, token: kimToken,
			body: marchallObj(t, echo.Map{"state": state, "member": "이영희", "value": 0}),
			wantData: marchallObj(t, allocation.State{Shares: []allocation.Share{
				{Member: "김철수", Value: 50}, {Member: "이영희", Value: 0}, {Member: "박민수", Value: 50},
			}}),
		},
		{
			name: "odd remainder", method: http.MethodPost, path: path, token: kimToken,
			body: marchallObj(t, echo.Map{"state": state, "member": "박민수", "value": 25}),
			wantData: marchallObj(t, allocation.State{Shares: []allocation.Share{
				{Member: "김철수", Value: 38}, {Member: "이영희", Value: 37}, {Member: "박민수", Value: 25},
			}}),
		},
	})
}

func Test_reviewAPI_submit(t *testing.T) {
	f := setupSessions(t)
	kimToken := getToken(t, f.conf, f.kim)
	path := f.path + "/reviews"
	entries := func(self, peer int) []byte {
		return marchallObj(t, echo.Map{"entries": []echo.Map{
			{"peer_name": "김철수", "contrib_rate": self},
			{"peer_name": "이영희", "contrib_rate": peer, "is_fit": true, "description": " great teammate "},
		}})
	}

	f.run(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: path, body: entries(60, 40), wantCode: http.StatusUnauthorized},
		{
			name: "not on a team", method: http.MethodPost, path: path, token: getToken(t, f.conf, f.park),
			body: entries(60, 40), wantCode: http.StatusForbidden,
		},
		{
			name: "entries required", method: http.MethodPost, path: path, token: kimToken,
			body: []byte(`{"entries": []}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "rates do not add up", method: http.MethodPost, path: path, token: kimToken,
			body: entries(60, 30), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"contrib_rate": "contribution rates must add up to 100"}),
		},
	})
	assert.Empty(t, f.broker.Published())

	rec := f.serve(httpTest{method: http.MethodPost, path: path, token: kimToken, body: entries(60, 40)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reviews []review.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reviews))
	require.Len(t, reviews, 2)
	assert.Equal(t, "김철수", reviews[0].PeerName)
	assert.Equal(t, 60, reviews[0].ContribRate)
	assert.False(t, reviews[0].IsFit.Valid)
	assert.Equal(t, "이영희", reviews[1].PeerName)
	assert.True(t, reviews[1].IsFit.Bool)
	assert.Equal(t, "great teammate", reviews[1].Description.String)

	published := f.broker.Published()
	require.Len(t, published, 1)
	assert.Equal(t, review.EventSubmitted, published[0].Type)
	assert.Equal(t, "김철수", published[0].UserName)

	rec = f.serve(httpTest{path: path + "/mine", token: kimToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []review.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	assert.Len(t, mine, 2)

	// closed sessions reject reviews
	f.serve(httpTest{method: http.MethodPost, path: f.path + "/stop", token: f.profToken})
	f.run(t, []httpTest{
		{
			name: "session closed", method: http.MethodPost, path: path, token: kimToken, body: entries(50, 50),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: review.ErrSessionClosed.Error()}),
		},
	})
}

func Test_reviewAPI_progressAndReset(t *testing.T) {
	f := setupSessions(t)
	testutil.AddReviews(t, f.revRepo, f.sess.ID, "이영희", map[string]int{"김철수": 50, "이영희": 50})

	rec := f.serve(httpTest{path: f.path + "/progress", token: f.profToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var prog review.Progress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prog))
	assert.Equal(t, 2, prog.Members)
	assert.Equal(t, 1, prog.Voted)
	require.Len(t, prog.Teams, 1)
	assert.Equal(t, []string{"이영희"}, prog.Teams[0].Voted)
	assert.Len(t, prog.Reviews, 2)

	f.run(t, []httpTest{
		{name: "faculty required", path: f.path + "/progress", token: getToken(t, f.conf, f.lee), wantCode: http.StatusForbidden},
		{
			name: "reset faculty required", method: http.MethodDelete, path: f.path + "/reviews",
			token: getToken(t, f.conf, f.lee), wantCode: http.StatusForbidden,
		},
		{name: "reset", method: http.MethodDelete, path: f.path + "/reviews", token: f.profToken, wantData: []byte(`{"deleted": 2}`)},
		{name: "reset again", method: http.MethodDelete, path: f.path + "/reviews", token: f.profToken, wantData: []byte(`{"deleted": 0}`)},
	})

	published := f.broker.Published()
	require.Len(t, published, 2)
	assert.Equal(t, review.EventReset, published[0].Type)
}

func Test_reviewAPI_stream(t *testing.T) {
	f := setupSessions(t)
	f.broker.pending = []review.Event{
		{Type: review.EventSubmitted, SessionID: f.sess.ID, UserName: "김철수", At: time.Now().UTC()},
	}

	f.run(t, []httpTest{
		{name: "faculty required", path: f.path + "/progress/stream", token: getToken(t, f.conf, f.kim), wantCode: http.StatusForbidden},
	})

	rec := f.serve(httpTest{path: f.path + "/progress/stream", token: f.profToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))

	events := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	require.Len(t, events, 2)
	assert.True(t, strings.HasPrefix(events[0], "event: progress\ndata: {"))
	assert.True(t, strings.HasPrefix(events[1], "event: "+review.EventSubmitted+"\ndata: {"))
}
