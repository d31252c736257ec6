package echoapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os/signal"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/otp"
	"github.com/trezcool/khaosat/core/question"
	"github.com/trezcool/khaosat/core/response"
	"github.com/trezcool/khaosat/core/result"
	"github.com/trezcool/khaosat/core/student"
	"github.com/trezcool/khaosat/services/email"
	"github.com/trezcool/khaosat/services/logger"
	"github.com/trezcool/khaosat/storage/database/sqlxrepos"
	"github.com/trezcool/khaosat/tests"
)

const adminPassword = "s3cret-pass"

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

type testEnv struct {
	srv  *Server
	db   *sqlx.DB
	conf *core.Config
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	db := testutil.OpenDB(t)
	conf := testutil.NewConfig()
	conf.Server.DisableReqLogs = true
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	conf.Admin.PasswordHash = string(hash)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	emailsvc.ResetSentMessages()

	studRepo := sqlxrepos.NewStudentRepository(db)
	qnRepo := sqlxrepos.NewQuestionRepository(db)
	srv := NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf),
		Validate:    validate,
		Translator:  translator,
		StudentSvc:  student.NewService(db, studRepo),
		QuestionSvc: question.NewService(db, qnRepo),
		OTPSvc:      otp.NewService(db, sqlxrepos.NewCodeRepository(db), studRepo, emailsvc.NewConsoleServiceMock(conf), conf.OTP),
		ResponseSvc: response.NewService(db, sqlxrepos.NewResponseRepository(db), studRepo, qnRepo),
		ResultSvc:   result.NewService(sqlxrepos.NewResultRepository(db), studRepo, qnRepo),
	})
	t.Cleanup(func() { signal.Stop(srv.shutdown) })

	return testEnv{srv: srv, db: db, conf: conf}
}

func (env testEnv) token(t *testing.T, sess core.Session) string {
	t.Helper()
	token, err := env.srv.auth.GenerateToken(sess)
	require.NoError(t, err)
	return token
}

func (env testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	return rec
}

func (env testEnv) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(newAuthRequest(tt.method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

// checkCodeAndData compares the status and, when wantData is set, the JSON body.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }
