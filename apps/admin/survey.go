package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

func (cli *commandLine) seed() error {
	seeded, err := cli.questionSvc.SeedIfEmpty(context.Background())
	if err != nil {
		return errors.Wrap(err, "seeding questions")
	}
	if seeded {
		fmt.Fprintln(cli.out, "Question bank seeded.")
	} else {
		fmt.Fprintln(cli.out, "Question bank already populated, nothing to do.")
	}
	return nil
}

func (cli *commandLine) resetQuestions() error {
	qns, err := cli.questionSvc.ResetToDefault(context.Background(), adminSess)
	if err != nil {
		return errors.Wrap(err, "resetting questions")
	}
	fmt.Fprintf(cli.out, "Question bank reset: %d questions.\n", len(qns))
	return nil
}

func (cli *commandLine) resetResponses() error {
	n, err := cli.responseSvc.ResetAll(context.Background(), adminSess)
	if err != nil {
		return errors.Wrap(err, "resetting responses")
	}
	fmt.Fprintf(cli.out, "%d responses deleted, every student may answer again.\n", n)
	return nil
}
