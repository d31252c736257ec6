package tabular

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/khaosat/core/result"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const exportSheet = "responses"

// ExportHeader lists the export columns, in order.
var ExportHeader = []string{
	"id", "student_id", "name", "email", "score",
	"question_id", "group_name", "order_no", "question_text", "qtype",
	"value_int", "value_text", "value_label", "created_at",
}

func exportRecord(r result.ExportRow) []string {
	var valueInt string
	if r.ValueInt.Valid {
		valueInt = strconv.Itoa(r.ValueInt.Int)
	}
	return []string{
		strconv.Itoa(r.ResponseID),
		r.StudentID,
		r.StudentName,
		r.StudentEmail,
		strconv.FormatFloat(r.Score, 'f', -1, 64),
		strconv.Itoa(r.QuestionID),
		r.GroupName,
		strconv.Itoa(r.OrderNo),
		r.QuestionText,
		r.QuestionType,
		valueInt,
		r.ValueText.String,
		r.ValueLabel(),
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// WriteExportCSV writes one line per answer. The UTF-8 BOM lets spreadsheet apps detect the encoding.
func WriteExportCSV(w io.Writer, rows []result.ExportRow) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return errors.Wrap(err, "writing csv")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return errors.Wrap(err, "writing csv")
	}
	for _, r := range rows {
		if err := cw.Write(exportRecord(r)); err != nil {
			return errors.Wrap(err, "writing csv")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "writing csv")
}

// WriteExportXLSX writes the same table as WriteExportCSV into a single-sheet workbook.
func WriteExportXLSX(w io.Writer, rows []result.ExportRow) error {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := file.SetSheetName("Sheet1", exportSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	sw, err := file.NewStreamWriter(exportSheet)
	if err != nil {
		return errors.Wrap(err, "creating stream writer")
	}

	if err = sw.SetRow("A1", toCells(ExportHeader)); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err = sw.SetRow(cell, exportCells(r)); err != nil {
			return errors.Wrapf(err, "writing row %d", i+2)
		}
	}
	if err = sw.Flush(); err != nil {
		return errors.Wrap(err, "flushing workbook")
	}
	return errors.Wrap(file.Write(w), "writing workbook")
}

func exportCells(r result.ExportRow) []interface{} {
	rec := exportRecord(r)
	cells := toCells(rec)
	// keep numbers numeric in the workbook
	cells[0] = r.ResponseID
	cells[4] = r.Score
	cells[5] = r.QuestionID
	cells[7] = r.OrderNo
	if r.ValueInt.Valid {
		cells[10] = r.ValueInt.Int
	}
	return cells
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// WriteRosterTemplate writes an empty roster workbook with the required headers.
func WriteRosterTemplate(w io.Writer) error {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()
	for i, col := range RosterColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err = file.SetCellValue("Sheet1", cell, col); err != nil {
			return errors.Wrap(err, "writing header")
		}
	}
	return errors.Wrap(file.Write(w), "writing workbook")
}
