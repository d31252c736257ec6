package response

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/khaosat/core/question"
	"github.com/trezcool/khaosat/core/student"
)

// Response is one stored answer. Exactly one of ValueInt (scale) or ValueText (open) is set.
type Response struct {
	ID         int         `json:"id" db:"id"`
	StudentID  string      `json:"student_id" db:"student_id"`
	QuestionID int         `json:"question_id" db:"question_id"`
	ValueInt   null.Int    `json:"value_int" db:"value_int"`
	ValueText  null.String `json:"value_text" db:"value_text"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"` // UTC
}

// Answer is what a student submits for a single question.
// Scale questions read Value, open questions read Text.
type Answer struct {
	QuestionID int     `json:"question_id" validate:"required"`
	Value      *int    `json:"value"`
	Text       *string `json:"text"`
}

// StudentAnswer is a question of the bank paired with the student's answer, if any.
type StudentAnswer struct {
	QuestionID int         `json:"question_id" db:"question_id"`
	GroupName  string      `json:"group_name" db:"group_name"`
	OrderNo    int         `json:"order_no" db:"order_no"`
	Text       string      `json:"text" db:"text"`
	Type       string      `json:"type" db:"qtype"`
	LowLabel   null.String `json:"-" db:"low_label"`
	MidLabel   null.String `json:"-" db:"mid_label"`
	HighLabel  null.String `json:"-" db:"high_label"`
	ValueInt   null.Int    `json:"value_int" db:"value_int"`
	ValueText  null.String `json:"value_text" db:"value_text"`
	ValueLabel string      `json:"value_label" db:"-"`
}

func (sa *StudentAnswer) setLabel() {
	if !sa.ValueInt.Valid {
		return
	}
	q := question.Question{LowLabel: sa.LowLabel, MidLabel: sa.MidLabel, HighLabel: sa.HighLabel}
	sa.ValueLabel = q.Label(sa.ValueInt.Int)
}

// Profile is a student's own view. Score and answers are only revealed once the survey is completed.
type Profile struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Completed   bool            `json:"completed"`
	CompletedAt null.Time       `json:"completed_at"`
	Score       *float64        `json:"score"`
	Answers     []StudentAnswer `json:"answers"`
}

func newProfile(stud student.Student) Profile {
	p := Profile{
		ID:          stud.ID,
		Email:       stud.Email,
		Name:        stud.Name,
		Completed:   stud.Completed,
		CompletedAt: stud.CompletedAt,
		Answers:     []StudentAnswer{},
	}
	if stud.Completed {
		score := stud.Score
		p.Score = &score
	}
	return p
}
