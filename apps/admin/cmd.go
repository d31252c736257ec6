package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/question"
	"github.com/trezcool/khaosat/core/response"
	"github.com/trezcool/khaosat/core/result"
	"github.com/trezcool/khaosat/core/student"
	"github.com/trezcool/khaosat/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	gooseRunFunc     = database.Migrate  // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db          *sqlx.DB
	out         io.Writer
	studentSvc  *student.Service
	questionSvc *question.Service
	responseSvc *response.Service
	resultSvc   *result.Service
}

// the CLI acts as the administrator
var adminSess = core.AdminSession()

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  seed                                  - install the default questions if the bank is empty")
	fmt.Fprintln(cli.out, "  resetquestions                        - replace all questions (and responses) with the defaults")
	fmt.Fprintln(cli.out, "  resetresponses                        - delete every response and reopen the survey")
	fmt.Fprintln(cli.out, "  import -file FILE                     - import the student roster from an .xlsx or .csv file")
	fmt.Fprintln(cli.out, "  export -file FILE [-format csv|xlsx]  - export every response")
	fmt.Fprintln(cli.out, "  hashpassword                          - hash the admin password (prompted) for ADMINPASSWORDHASH")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importCmd := cli.newFlagSet("import")
	importFile := importCmd.String("file", "", "The roster file (.xlsx or .csv).")

	exportCmd := cli.newFlagSet("export")
	exportFile := exportCmd.String("file", "", "The destination file.")
	exportFormat := exportCmd.String("format", "", "csv or xlsx (defaults to the file extension).")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seed":
		return cli.seed()
	case "resetquestions":
		return cli.resetQuestions()
	case "resetresponses":
		return cli.resetResponses()
	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importRoster(*importFile)
	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportFile == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.exportResponses(*exportFile, *exportFormat)
	case "hashpassword":
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			cli.printUsage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Confirm password:")
		confirm, err := readPasswordFunc(int(os.Stdin.Fd()))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		return cli.hashPassword(pwd, confirm)
	default:
		cli.printUsage()
		return errHelp
	}
}
