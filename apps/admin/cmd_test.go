package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/question"
	"github.com/trezcool/khaosat/core/response"
	"github.com/trezcool/khaosat/core/result"
	"github.com/trezcool/khaosat/core/student"
	"github.com/trezcool/khaosat/services/tabular"
	"github.com/trezcool/khaosat/storage/database/sqlxrepos"
	"github.com/trezcool/khaosat/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & repos
	db := testutil.OpenDB(t)
	studRepo := sqlxrepos.NewStudentRepository(db)
	qnRepo := sqlxrepos.NewQuestionRepository(db)

	// start CLI
	var out bytes.Buffer
	return &commandLine{
		db:          db,
		out:         &out,
		studentSvc:  student.NewService(db, studRepo),
		questionSvc: question.NewService(db, qnRepo),
		responseSvc: response.NewService(db, sqlxrepos.NewResponseRepository(db), studRepo, qnRepo),
		resultSvc:   result.NewService(sqlxrepos.NewResultRepository(db), studRepo, qnRepo),
	}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func count(t *testing.T, db *sqlx.DB, q string) int {
	var n int
	require.NoError(t, db.GetContext(context.Background(), &n, q))
	return n
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "add_column", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	})
}

func Test_commandLine_migrateStatus(t *testing.T) {
	cli, _ := setup(t)

	// the real goose runner against the embedded migrations
	assert.NoError(t, cli.run([]string{"admin", "migrate", "status"}))
}

func Test_commandLine_questionsAndResponses(t *testing.T) {
	cli, out := setup(t)
	db := cli.db
	defaults := len(question.Defaults())

	require.NoError(t, cli.run([]string{"admin", "seed"}))
	assert.Contains(t, out.String(), "seeded")
	assert.Equal(t, defaults, count(t, db, "SELECT COUNT(*) FROM questions"))

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "seed"}))
	assert.Contains(t, out.String(), "nothing to do")

	testutil.CreateStudent(t, db, "S001", "a@x.com", "A", 8)
	qns, err := cli.questionSvc.List(context.Background())
	require.NoError(t, err)
	answers := make([]response.Answer, 0, len(qns))
	for _, q := range qns {
		a := response.Answer{QuestionID: q.ID}
		if q.IsScale() {
			v := 2
			a.Value = &v
		} else {
			txt := "ok"
			a.Text = &txt
		}
		answers = append(answers, a)
	}
	require.NoError(t, cli.responseSvc.Submit(context.Background(), core.StudentSession("S001"), answers))

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "resetresponses"}))
	assert.Contains(t, out.String(), strconv.Itoa(len(answers))+" responses deleted")
	assert.Zero(t, count(t, db, "SELECT COUNT(*) FROM responses"))
	assert.Zero(t, count(t, db, "SELECT COUNT(*) FROM students WHERE completed"))

	testutil.CreateQuestion(t, db, defaults+1, question.TypeOpen)
	require.NoError(t, cli.run([]string{"admin", "resetquestions"}))
	assert.Equal(t, defaults, count(t, db, "SELECT COUNT(*) FROM questions"))
}

func Test_commandLine_importExport(t *testing.T) {
	cli, out := setup(t)
	dir := t.TempDir()

	roster := filepath.Join(dir, "roster.csv")
	require.NoError(t, os.WriteFile(roster, []byte("student_id,email,name,score\nS001,a@x.com,A,8\nS002,b@x.com,B,9.5\n"), 0o600))
	badRoster := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(badRoster, []byte("student_id,email,name,score\nS001,nope,A,8\n"), 0o600))

	var vErr *core.ValidationError
	runCLITests(t, cli, []cliTest{
		{name: "import: no file", args: []string{"import"}, wantErr: errHelp},
		{name: "import: unknown flag", args: []string{"import", "-lol"}, wantErrStr: "flag provided but not defined: -lol"},
		{name: "import: unsupported format", args: []string{"import", "-file", "roster.ods"}, wantErr: tabular.ErrInvalidFormat},
		{name: "import: missing file", args: []string{"import", "-file", filepath.Join(dir, "nope.csv")}, wantErr: os.ErrNotExist},
		{name: "import", args: []string{"import", "-file", roster}},
		{name: "export: no file", args: []string{"export"}, wantErr: errHelp},
		{name: "export: unsupported format", args: []string{"export", "-file", filepath.Join(dir, "out.csv"), "-format", "pdf"}, wantErr: tabular.ErrInvalidFormat},
	})
	assert.Contains(t, out.String(), "2 students imported")

	err := cli.run([]string{"admin", "import", "-file", badRoster})
	assert.ErrorAs(t, err, &vErr)

	qn := testutil.CreateQuestion(t, cli.db, 1, question.TypeScale)
	v := 3
	require.NoError(t, cli.responseSvc.Submit(context.Background(), core.StudentSession("S001"), []response.Answer{
		{QuestionID: qn.ID, Value: &v},
	}))

	t.Run("export csv", func(t *testing.T) {
		path := filepath.Join(dir, "responses.csv")
		require.NoError(t, cli.run([]string{"admin", "export", "-file", path}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF")))).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, tabular.ExportHeader, records[0])
		assert.Equal(t, "S001", records[1][1])
	})

	t.Run("export xlsx by flag", func(t *testing.T) {
		path := filepath.Join(dir, "responses.data")
		require.NoError(t, cli.run([]string{"admin", "export", "-file", path, "-format", "XLSX"}))

		file, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		rows, err := file.GetRows(file.GetSheetList()[0])
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})
}

func Test_commandLine_hashPassword(t *testing.T) {
	cli, out := setup(t)

	type extra struct {
		pwd, confirm string
	}
	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })

	tests := []cliTest{
		{name: "no password", args: []string{"hashpassword"}, wantErr: errHelp},
		{name: "mismatch", args: []string{"hashpassword"}, extra: extra{pwd: "s3cret", confirm: "secret"}, wantErr: errPasswordMismatch},
		{name: "hash", args: []string{"hashpassword"}, extra: extra{pwd: "s3cret", confirm: "s3cret"}},
	}
	for _, tt := range tests {
		calls := 0
		readPasswordFunc = func(fd int) ([]byte, error) {
			calls++
			ext, ok := tt.extra.(extra)
			switch {
			case !ok:
				return nil, nil
			case calls == 1:
				return []byte(ext.pwd), nil
			default:
				return []byte(ext.confirm), nil
			}
		}
		out.Reset()
		runCLITests(t, cli, []cliTest{tt})

		if tt.wantErr == nil {
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			hash := lines[len(lines)-1]
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
		}
	}
}
