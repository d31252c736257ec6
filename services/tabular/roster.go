package tabular

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/student"
)

// supported formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var ErrInvalidFormat = errors.New("unsupported file format")

const (
	colID    = "Mã sinh viên"
	colEmail = "Email"
	colName  = "Họ và tên"
	colScore = "Điểm thi vấn đáp"
)

// RosterColumns are the headers a roster file must carry.
var RosterColumns = []string{colID, colEmail, colName, colScore}

var columnAliases = map[string]string{
	"student_id": colID,
	"email":      colEmail,
	"name":       colName,
	"score":      colScore,
}

// FormatFromFilename guesses the format from a file extension.
func FormatFromFilename(name string) (string, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(name), ".xlsx"):
		return FormatXLSX, nil
	case strings.HasSuffix(strings.ToLower(name), ".csv"):
		return FormatCSV, nil
	}
	return "", ErrInvalidFormat
}

// ReadRoster parses roster rows from an xlsx workbook (first sheet) or a csv file.
// Any row that cannot be coerced fails the whole import.
func ReadRoster(r io.Reader, format string) ([]student.NewStudent, error) {
	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatXLSX:
		records, err = readXLSX(r)
	case FormatCSV:
		records, err = readCSV(r)
	default:
		return nil, ErrInvalidFormat
	}
	if err != nil {
		return nil, err
	}
	return parseRoster(records)
}

func readXLSX(r io.Reader) ([][]string, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "opening workbook"))
	}
	defer func() { _ = file.Close() }()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewValidationError(errors.New("the workbook has no sheet"))
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "reading rows")
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "parsing csv"))
	}
	return records, nil
}

func parseRoster(records [][]string) ([]student.NewStudent, error) {
	if len(records) == 0 {
		return nil, core.NewValidationError(errors.New("the file is empty"))
	}

	columns := make(map[string]int)
	for i, h := range records[0] {
		name := strings.TrimSpace(h)
		if canonical, ok := columnAliases[strings.ToLower(name)]; ok {
			name = canonical
		}
		if _, seen := columns[name]; !seen {
			columns[name] = i
		}
	}
	var missing []core.FieldError
	for _, col := range RosterColumns {
		if _, ok := columns[col]; !ok {
			missing = append(missing, core.FieldError{Field: col, Error: "missing column"})
		}
	}
	if len(missing) > 0 {
		return nil, core.NewValidationError(
			errors.Errorf("missing columns, required: %s", strings.Join(RosterColumns, ", ")),
			missing...,
		)
	}

	rows := make([]student.NewStudent, 0, len(records)-1)
	for i, rec := range records[1:] {
		rowNum := i + 2 // header is row 1
		get := func(col string) string {
			if idx := columns[col]; idx < len(rec) {
				return strings.TrimSpace(rec[idx])
			}
			return ""
		}
		if isBlank(rec) {
			continue
		}

		scoreStr := strings.Replace(get(colScore), ",", ".", 1)
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			return nil, core.NewValidationError(
				errors.Errorf("invalid score on row %d", rowNum),
				core.FieldError{Field: colScore, Error: "row " + strconv.Itoa(rowNum) + ": not a number: " + strconv.Quote(get(colScore))},
			)
		}
		row := student.NewStudent{ID: get(colID), Email: get(colEmail), Name: get(colName), Score: score}
		if fErr := row.Clean(); fErr != nil {
			return nil, core.NewValidationError(
				errors.Errorf("invalid row %d", rowNum),
				core.FieldError{Field: fErr.Field, Error: "row " + strconv.Itoa(rowNum) + ": " + fErr.Error},
			)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
