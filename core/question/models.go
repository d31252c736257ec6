package question

import (
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/khaosat/core"
)

// Question types
const (
	TypeScale = "scale"
	TypeOpen  = "open"
)

// Scale range; each value maps to one of the three labels (low, mid, high).
const (
	ScaleMin = 1
	ScaleMax = 3
)

var (
	Types = []string{TypeScale, TypeOpen}

	errInvalidQuestion = errors.New("invalid question")
)

func ValidType(t string) bool {
	return t == TypeScale || t == TypeOpen
}

type Question struct {
	ID        int         `json:"id" db:"id"`
	GroupName string      `json:"group_name" db:"group_name"`
	OrderNo   int         `json:"order_no" db:"order_no"`
	Text      string      `json:"text" db:"text"`
	Type      string      `json:"type" db:"qtype"`
	LowLabel  null.String `json:"low_label" db:"low_label"`
	MidLabel  null.String `json:"mid_label" db:"mid_label"`
	HighLabel null.String `json:"high_label" db:"high_label"`
}

func (q Question) IsScale() bool { return q.Type == TypeScale }
func (q Question) IsOpen() bool  { return q.Type == TypeOpen }

// Label returns the display label of a scale value, or "" when out of range.
func (q Question) Label(value int) string {
	switch value {
	case 1:
		return q.LowLabel.String
	case 2:
		return q.MidLabel.String
	case 3:
		return q.HighLabel.String
	}
	return ""
}

// InRange reports whether value is a valid answer for a scale question.
func InRange(value int) bool {
	return value >= ScaleMin && value <= ScaleMax
}

func (q *Question) clean() {
	q.GroupName = core.CleanString(q.GroupName)
	q.Text = core.CleanString(q.Text)
	q.Type = core.CleanString(q.Type, true /* lower */)
	if q.IsOpen() {
		q.LowLabel, q.MidLabel, q.HighLabel = null.String{}, null.String{}, null.String{}
		return
	}
	q.LowLabel = cleanLabel(q.LowLabel)
	q.MidLabel = cleanLabel(q.MidLabel)
	q.HighLabel = cleanLabel(q.HighLabel)
}

func (q Question) validate() error {
	var flds []core.FieldError
	if q.Text == "" {
		flds = append(flds, core.FieldError{Field: "text", Error: "this field is required"})
	}
	if !ValidType(q.Type) {
		flds = append(flds, core.FieldError{Field: "type", Error: "must be one of: scale, open"})
	}
	if q.OrderNo < 1 {
		flds = append(flds, core.FieldError{Field: "order_no", Error: "must be 1 or greater"})
	}
	if q.IsScale() {
		labels := []struct {
			field string
			value null.String
		}{{"low_label", q.LowLabel}, {"mid_label", q.MidLabel}, {"high_label", q.HighLabel}}
		for _, lbl := range labels {
			if !lbl.value.Valid {
				flds = append(flds, core.FieldError{Field: lbl.field, Error: "scale questions need all three labels"})
			}
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(errInvalidQuestion, flds...)
	}
	return nil
}

func cleanLabel(lbl null.String) null.String {
	s := core.CleanString(lbl.String)
	return null.NewString(s, lbl.Valid && s != "")
}

// NewQuestion contains information needed to create a new Question.
// OrderNo defaults to the next free position.
type NewQuestion struct {
	GroupName string  `json:"group_name"`
	Text      string  `json:"text"`
	Type      string  `json:"type"`
	LowLabel  *string `json:"low_label"`
	MidLabel  *string `json:"mid_label"`
	HighLabel *string `json:"high_label"`
	OrderNo   *int    `json:"order_no"`
}

func (nq NewQuestion) question() Question {
	q := Question{
		GroupName: nq.GroupName,
		Text:      nq.Text,
		Type:      nq.Type,
		LowLabel:  null.StringFromPtr(nq.LowLabel),
		MidLabel:  null.StringFromPtr(nq.MidLabel),
		HighLabel: null.StringFromPtr(nq.HighLabel),
	}
	if nq.OrderNo != nil {
		q.OrderNo = *nq.OrderNo
	}
	return q
}

// UpdateQuestion defines what may be changed on an existing Question. Nil leaves a field unchanged.
type UpdateQuestion struct {
	GroupName *string `json:"group_name"`
	Text      *string `json:"text"`
	Type      *string `json:"type"`
	LowLabel  *string `json:"low_label"`
	MidLabel  *string `json:"mid_label"`
	HighLabel *string `json:"high_label"`
	OrderNo   *int    `json:"order_no"`
}

// apply merges the provided fields into orig. An unknown type or a blank text is rejected, never ignored.
func (uq UpdateQuestion) apply(orig Question) (Question, error) {
	q := orig
	if uq.Type != nil {
		t := core.CleanString(*uq.Type, true /* lower */)
		if !ValidType(t) {
			return Question{}, core.NewValidationError(
				errInvalidQuestion,
				core.FieldError{Field: "type", Error: "must be one of: scale, open"},
			)
		}
		q.Type = t
	}
	if uq.GroupName != nil {
		q.GroupName = *uq.GroupName
	}
	if uq.Text != nil {
		txt := core.CleanString(*uq.Text)
		if txt == "" {
			return Question{}, core.NewValidationError(
				errInvalidQuestion,
				core.FieldError{Field: "text", Error: "this field is required"},
			)
		}
		q.Text = txt
	}
	if uq.LowLabel != nil {
		q.LowLabel = null.StringFrom(*uq.LowLabel)
	}
	if uq.MidLabel != nil {
		q.MidLabel = null.StringFrom(*uq.MidLabel)
	}
	if uq.HighLabel != nil {
		q.HighLabel = null.StringFrom(*uq.HighLabel)
	}
	if uq.OrderNo != nil {
		q.OrderNo = *uq.OrderNo
	}
	return q, nil
}
