package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/services/tabular"
)

func (cli *commandLine) importRoster(path string) error {
	format, err := tabular.FormatFromFilename(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening roster")
	}
	defer func() { _ = f.Close() }()

	rows, err := tabular.ReadRoster(f, format)
	if err != nil {
		return errors.Wrap(err, "reading roster")
	}
	n, err := cli.studentSvc.Upsert(context.Background(), adminSess, rows)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	fmt.Fprintf(cli.out, "%d students imported.\n", n)
	return nil
}

func (cli *commandLine) exportResponses(path, format string) (err error) {
	format = core.CleanString(format, true /* lower */)
	if format == "" {
		if format, err = tabular.FormatFromFilename(path); err != nil {
			return err
		}
	}
	if format != tabular.FormatCSV && format != tabular.FormatXLSX {
		return tabular.ErrInvalidFormat
	}

	rows, err := cli.resultSvc.ExportRows(context.Background(), adminSess)
	if err != nil {
		return errors.Wrap(err, "querying export rows")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating export file")
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = errors.Wrap(cErr, "closing export file")
		}
	}()

	w := bufio.NewWriter(f)
	if format == tabular.FormatXLSX {
		err = tabular.WriteExportXLSX(w, rows)
	} else {
		err = tabular.WriteExportCSV(w, rows)
	}
	if err != nil {
		return errors.Wrap(err, "writing export")
	}
	if err = w.Flush(); err != nil {
		return errors.Wrap(err, "writing export")
	}
	fmt.Fprintf(cli.out, "%d responses exported to %s.\n", len(rows), path)
	return nil
}
