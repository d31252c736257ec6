package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/question"
	"github.com/trezcool/khaosat/core/response"
	"github.com/trezcool/khaosat/core/result"
	"github.com/trezcool/khaosat/tests"
)

func TestSurvey(t *testing.T) {
	env := newTestEnv(t)
	scale := testutil.CreateQuestion(t, env.db, 1, question.TypeScale)
	open := testutil.CreateQuestion(t, env.db, 2, question.TypeOpen)
	testutil.CreateStudent(t, env.db, "S001", "a@x.com", "A", 8.5)
	testutil.CreateStudent(t, env.db, "S002", "b@x.com", "B", 6)

	s1 := env.token(t, core.StudentSession("S001"))
	s2 := env.token(t, core.StudentSession("S002"))
	admin := env.token(t, core.AdminSession())

	valid := marshalObj(t, SubmitRequest{Answers: []response.Answer{
		{QuestionID: scale.ID, Value: intPtr(3)},
		{QuestionID: open.ID, Text: strPtr("Rất tốt")},
	}})

	env.run(t, []httpTest{
		{
			name:     "questions",
			method:   http.MethodGet,
			path:     "/v1/questions",
			token:    s1,
			wantCode: http.StatusOK,
			wantData: marshalObj(t, []question.Question{scale, open}),
		},
		{
			name:     "profile before completion",
			method:   http.MethodGet,
			path:     "/v1/me",
			token:    s1,
			wantCode: http.StatusOK,
			wantData: []byte(`{"id": "S001", "email": "a@x.com", "name": "A", "completed": false,
				"completed_at": null, "score": null, "answers": []}`),
		},
		{
			name:     "dashboard before completion",
			method:   http.MethodGet,
			path:     "/v1/dashboard",
			token:    s1,
			wantCode: http.StatusForbidden,
		},
		{
			name:   "incomplete",
			method: http.MethodPost,
			path:   "/v1/responses",
			token:  s1,
			body: marshalObj(t, SubmitRequest{Answers: []response.Answer{
				{QuestionID: scale.ID, Value: intPtr(7)},
			}}),
			wantCode: http.StatusUnprocessableEntity,
			wantData: []byte(`{
				"error": "incomplete submission (unanswered questions: 2; invalid answers for questions: 1)",
				"questions": [1, 2], "missing": [2], "invalid": [1]
			}`),
		},
		{
			name:     "missing question id",
			method:   http.MethodPost,
			path:     "/v1/responses",
			token:    s1,
			body:     []byte(`{"answers": [{"value": 1}]}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "admin cannot submit",
			method:   http.MethodPost,
			path:     "/v1/responses",
			token:    admin,
			body:     valid,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "submit",
			method:   http.MethodPost,
			path:     "/v1/responses",
			token:    s1,
			body:     valid,
			wantCode: http.StatusCreated,
		},
		{
			name:     "submit twice",
			method:   http.MethodPost,
			path:     "/v1/responses",
			token:    s1,
			body:     valid,
			wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Error: core.ErrAlreadyCompleted.Error()}),
		},
		{
			name:     "others still cannot see results",
			method:   http.MethodGet,
			path:     "/v1/dashboard",
			token:    s2,
			wantCode: http.StatusForbidden,
		},
	})

	rec := env.do(newAuthRequest(http.MethodGet, "/v1/me", s1))
	require.Equal(t, http.StatusOK, rec.Code)
	var p response.Profile
	decode(t, rec, &p)
	assert.True(t, p.Completed)
	require.NotNil(t, p.Score)
	assert.Equal(t, 8.5, *p.Score)
	require.Len(t, p.Answers, 2)
	assert.Equal(t, "High", p.Answers[0].ValueLabel)
	assert.Equal(t, "Rất tốt", p.Answers[1].ValueText.String)

	for _, token := range []string{s1, admin} {
		rec = env.do(newAuthRequest(http.MethodGet, "/v1/dashboard", token))
		require.Equal(t, http.StatusOK, rec.Code)
		var sum result.Summary
		decode(t, rec, &sum)
		assert.Equal(t, 2, sum.Students)
		assert.Equal(t, 1, sum.Completed)
		assert.Equal(t, 1, sum.Respondents)
		require.Len(t, sum.Items, 2)
		assert.Equal(t, []result.Cluster{{Text: "Rất tốt", Count: 1}}, sum.Items[1].Clusters)
	}
}

func TestSurvey_unknownStudent(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateQuestion(t, env.db, 1, question.TypeOpen)

	// the token outlived its student
	rec := env.do(newAuthRequest(http.MethodGet, "/v1/me", env.token(t, core.StudentSession("S404"))))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
