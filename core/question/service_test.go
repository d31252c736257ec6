package question_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/question"
	"github.com/trezcool/khaosat/core/response"
	"github.com/trezcool/khaosat/storage/database/sqlxrepos"
	"github.com/trezcool/khaosat/tests"
)

var admin = core.AdminSession()

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func setup(t *testing.T) (*question.Service, core.DB) {
	db := testutil.OpenDB(t)
	return question.NewService(db, sqlxrepos.NewQuestionRepository(db)), db
}

func TestService_SeedIfEmpty(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	seeded, err := svc.SeedIfEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = svc.SeedIfEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, seeded, "second seed must be a no-op")

	qs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, qs, len(question.Defaults()))
	for i, q := range qs {
		assert.Equal(t, i+1, q.OrderNo)
	}
}

func TestService_ResetToDefault(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	stud := testutil.CreateStudent(t, db, "S001", "a@x.com", "A", 8)
	q := testutil.CreateQuestion(t, db, 1, question.TypeOpen)
	err := sqlxrepos.NewResponseRepository(db).InsertResponses(ctx, []response.Response{{
		StudentID: stud.ID, QuestionID: q.ID, ValueText: null.StringFrom("ok"),
	}})
	require.NoError(t, err)

	_, err = svc.ResetToDefault(ctx, core.StudentSession(stud.ID))
	assert.ErrorIs(t, err, core.ErrForbidden)

	qs, err := svc.ResetToDefault(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, qs, len(question.Defaults()))

	var n int
	require.NoError(t, db.GetContext(ctx, &n, "SELECT COUNT(*) FROM responses"))
	assert.Zero(t, n)
	require.NoError(t, db.GetContext(ctx, &n, "SELECT COUNT(*) FROM questions"))
	assert.Equal(t, len(question.Defaults()), n)

	_, err = svc.Get(ctx, q.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestService_Create(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	testutil.CreateQuestion(t, db, 3, question.TypeOpen)

	tests := []struct {
		name      string
		sess      core.Session
		nq        question.NewQuestion
		wantErr   error
		wantOrder int
		wantField string
	}{
		{
			name:    "student",
			sess:    core.StudentSession("S001"),
			nq:      question.NewQuestion{Text: "Q", Type: question.TypeOpen},
			wantErr: core.ErrForbidden,
		},
		{
			name:      "missing text",
			sess:      admin,
			nq:        question.NewQuestion{Type: question.TypeOpen},
			wantField: "text",
		},
		{
			name:      "invalid type",
			sess:      admin,
			nq:        question.NewQuestion{Text: "Q", Type: "slider"},
			wantField: "type",
		},
		{
			name:      "scale without labels",
			sess:      admin,
			nq:        question.NewQuestion{Text: "Q", Type: question.TypeScale, LowLabel: strPtr("low")},
			wantField: "mid_label",
		},
		{
			name:      "duplicate order",
			sess:      admin,
			nq:        question.NewQuestion{Text: "Q", Type: question.TypeOpen, OrderNo: intPtr(3)},
			wantField: "order_no",
		},
		{
			name:      "next order",
			sess:      admin,
			nq:        question.NewQuestion{Text: " Q ", Type: "OPEN", LowLabel: strPtr("ignored")},
			wantOrder: 4,
		},
		{
			name: "explicit order",
			sess: admin,
			nq: question.NewQuestion{
				Text: "Q", Type: question.TypeScale, OrderNo: intPtr(1),
				LowLabel: strPtr("L"), MidLabel: strPtr("M"), HighLabel: strPtr("H"),
			},
			wantOrder: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := svc.Create(ctx, tt.sess, tt.nq)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantField != "":
				assertFieldError(t, err, tt.wantField)
			default:
				require.NoError(t, err)
				assert.NotZero(t, q.ID)
				assert.Equal(t, tt.wantOrder, q.OrderNo)
				assert.Equal(t, "Q", q.Text)
				if q.IsOpen() {
					assert.False(t, q.LowLabel.Valid, "open questions carry no labels")
				}
			}
		})
	}
}

func TestService_Update(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	scale := testutil.CreateQuestion(t, db, 1, question.TypeScale)
	open := testutil.CreateQuestion(t, db, 2, question.TypeOpen)

	t.Run("leave unchanged", func(t *testing.T) {
		q, err := svc.Update(ctx, admin, scale.ID, question.UpdateQuestion{})
		require.NoError(t, err)
		assert.Equal(t, scale, q)
	})

	t.Run("blank text is rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, scale.ID, question.UpdateQuestion{Text: strPtr("  ")})
		assertFieldError(t, err, "text")

		q, err := svc.Get(ctx, scale.ID)
		require.NoError(t, err)
		assert.Equal(t, scale.Text, q.Text)
	})

	t.Run("invalid type is rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, scale.ID, question.UpdateQuestion{Type: strPtr("slider")})
		assertFieldError(t, err, "type")

		q, err := svc.Get(ctx, scale.ID)
		require.NoError(t, err)
		assert.Equal(t, question.TypeScale, q.Type)
	})

	t.Run("switch to open clears labels", func(t *testing.T) {
		q, err := svc.Update(ctx, admin, scale.ID, question.UpdateQuestion{Type: strPtr(question.TypeOpen)})
		require.NoError(t, err)
		assert.True(t, q.IsOpen())
		assert.False(t, q.LowLabel.Valid)
		assert.False(t, q.HighLabel.Valid)
	})

	t.Run("switch to scale needs labels", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, open.ID, question.UpdateQuestion{Type: strPtr(question.TypeScale)})
		assertFieldError(t, err, "low_label")
	})

	t.Run("order taken", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, open.ID, question.UpdateQuestion{OrderNo: intPtr(1)})
		assertFieldError(t, err, "order_no")
	})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, 999, question.UpdateQuestion{Text: strPtr("x")})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("forbidden", func(t *testing.T) {
		_, err := svc.Update(ctx, core.Session{}, open.ID, question.UpdateQuestion{Text: strPtr("x")})
		assert.ErrorIs(t, err, core.ErrForbidden)
	})
}

func TestService_Delete(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	stud := testutil.CreateStudent(t, db, "S001", "a@x.com", "A", 8)
	q := testutil.CreateQuestion(t, db, 1, question.TypeOpen)
	other := testutil.CreateQuestion(t, db, 2, question.TypeOpen)
	err := sqlxrepos.NewResponseRepository(db).InsertResponses(ctx, []response.Response{
		{StudentID: stud.ID, QuestionID: q.ID, ValueText: null.StringFrom("a")},
		{StudentID: stud.ID, QuestionID: other.ID, ValueText: null.StringFrom("b")},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, admin, 999), core.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, admin, q.ID))

	var n int
	require.NoError(t, db.GetContext(ctx, &n, "SELECT COUNT(*) FROM responses"))
	assert.Equal(t, 1, n, "only the deleted question's responses go away")
}

func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	for _, f := range vErr.Fields {
		if f.Field == field {
			return
		}
	}
	t.Errorf("no error on field %q: %+v", field, vErr.Fields)
}
