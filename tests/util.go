package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/question"
	"github.com/trezcool/khaosat/core/student"
	"github.com/trezcool/khaosat/storage/database"
	"github.com/trezcool/khaosat/storage/database/sqlxrepos"
)

// OpenDB opens a freshly migrated sqlite database living in the test's temp dir.
func OpenDB(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open(database.SQLite, database.SQLiteDSN(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, "up"); err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	return db
}

// NewConfig returns a test configuration without touching the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Khaosat",
		SecretKey: "test-secret",
		Server:    core.ServerConfig{JWTExpirationDelta: core.DefaultJWTExpiration},
		Database:  core.DatabaseConfig{Engine: database.SQLite},
		Email: core.EmailConfig{
			Backend:          "console",
			DefaultFromEmail: "Survey System <noreply@localhost>",
		},
		OTP:   core.OTPConfig{CodeTTL: core.DefaultOTPCodeTTL, Cooldown: core.DefaultOTPCooldown},
		Admin: core.AdminConfig{Username: "admin"},
	}
}

func CreateStudent(t testing.TB, db core.DBExecutor, id, email, name string, score float64) student.Student {
	t.Helper()
	repo := sqlxrepos.NewStudentRepository(db)
	ctx := context.Background()
	row := student.NewStudent{ID: id, Email: email, Name: name, Score: score}
	if err := repo.UpsertStudents(ctx, []student.NewStudent{row}); err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	stud, err := repo.GetStudent(ctx, id)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return stud
}

// SeedQuestions installs the default questionnaire and returns it ordered by order number.
func SeedQuestions(t testing.TB, db core.DBExecutor) []question.Question {
	t.Helper()
	repo := sqlxrepos.NewQuestionRepository(db)
	qs, err := repo.CreateQuestions(context.Background(), question.Defaults())
	if err != nil {
		t.Fatalf("SeedQuestions() failed: %v", err)
	}
	return qs
}

func CreateQuestion(t testing.TB, db core.DBExecutor, orderNo int, qtype string) question.Question {
	t.Helper()
	q := question.Question{GroupName: "Group", OrderNo: orderNo, Text: "Question?", Type: qtype}
	if qtype == question.TypeScale {
		q.LowLabel, q.MidLabel, q.HighLabel = null.StringFrom("Low"), null.StringFrom("Mid"), null.StringFrom("High")
	}
	qs, err := sqlxrepos.NewQuestionRepository(db).CreateQuestions(context.Background(), []question.Question{q})
	if err != nil {
		t.Fatalf("CreateQuestion() failed: %v", err)
	}
	return qs[0]
}
