package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/peereval/apps/api/echo"
	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/review"
	"github.com/trezcool/peereval/core/roster"
	"github.com/trezcool/peereval/core/session"
	"github.com/trezcool/peereval/core/user"
	emailsvc "github.com/trezcool/peereval/services/email"
	logsvc "github.com/trezcool/peereval/services/logger"
	inmemdb "github.com/trezcool/peereval/storage/database/inmem"
	testutil "github.com/trezcool/peereval/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type fixture struct {
	app      *echoapi.Server
	conf     *core.Config
	usrRepo  user.Repository
	sessRepo session.Repository
	revRepo  review.Repository
	mailSvc  *emailsvc.ConsoleServiceMock
	parser   *fakeParser
	broker   *fakeBroker
}

func setup(t *testing.T) fixture {
	conf := testutil.Config()
	logger := logsvc.NewNopLogger()
	core.ParseEmailTemplates(conf, logger)

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	session.InitValidators(validate, translator)

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	sessRepo := inmemdb.NewSessionRepository(db)
	revRepo := inmemdb.NewReviewRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	parser := new(fakeParser)
	broker := new(fakeBroker)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	rosterSvc := roster.NewService(parser, usrSvc)
	sessSvc := session.NewService(db, sessRepo, rosterSvc)
	revSvc := review.NewService(db, revRepo, sessSvc, broker, logger)

	// set up server
	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		SessionSvc:     sessSvc,
		ReviewSvc:      revSvc,
		RosterSvc:      rosterSvc,
		Broker:         broker,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = app.Close() })

	return fixture{
		app:      app,
		conf:     conf,
		usrRepo:  usrRepo,
		sessRepo: sessRepo,
		revRepo:  revRepo,
		mailSvc:  mailSvc,
		parser:   parser,
		broker:   broker,
	}
}

// fakeParser answers every roster text with raw, or err.
type fakeParser struct {
	raw []byte
	err error
}

func (p *fakeParser) ParseTeams(context.Context, string, []string) ([]byte, error) {
	return p.raw, p.err
}

// fakeBroker records published events; subscribers get the pending events, then the stream ends.
type fakeBroker struct {
	mu        sync.Mutex
	published []review.Event
	pending   []review.Event
}

func (b *fakeBroker) Publish(_ context.Context, evt review.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, evt)
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, int64) (<-chan review.Event, func() error, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := make(chan review.Event, len(b.pending))
	for _, evt := range b.pending {
		events <- evt
	}
	close(events)
	return events, func() error { return nil }, nil
}

func (b *fakeBroker) Published() []review.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]review.Event(nil), b.published...)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func (f fixture) serve(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	f.app.ServeHTTP(rec, req)
	return rec
}

func (f fixture) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, f.serve(tt))
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := echoapi.GenerateToken(conf, echoapi.GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

// checkCodeAndData checks the response code, and its body when tt.wantData is set.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
