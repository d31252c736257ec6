package result

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/khaosat/core/question"
)

// ExportRow is one answer joined with its student and question.
type ExportRow struct {
	ResponseID   int         `json:"response_id" db:"response_id"`
	StudentID    string      `json:"student_id" db:"student_id"`
	StudentName  string      `json:"student_name" db:"student_name"`
	StudentEmail string      `json:"student_email" db:"student_email"`
	Score        float64     `json:"score" db:"score"`
	QuestionID   int         `json:"question_id" db:"question_id"`
	GroupName    string      `json:"group_name" db:"group_name"`
	OrderNo      int         `json:"order_no" db:"order_no"`
	QuestionText string      `json:"question_text" db:"question_text"`
	QuestionType string      `json:"question_type" db:"qtype"`
	LowLabel     null.String `json:"-" db:"low_label"`
	MidLabel     null.String `json:"-" db:"mid_label"`
	HighLabel    null.String `json:"-" db:"high_label"`
	ValueInt     null.Int    `json:"value_int" db:"value_int"`
	ValueText    null.String `json:"value_text" db:"value_text"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// ValueLabel is the question's label for a scale answer, empty for open answers.
func (r ExportRow) ValueLabel() string {
	if !r.ValueInt.Valid {
		return ""
	}
	q := question.Question{LowLabel: r.LowLabel, MidLabel: r.MidLabel, HighLabel: r.HighLabel}
	return q.Label(r.ValueInt.Int)
}

type (
	// Summary feeds the dashboard.
	Summary struct {
		Students    int               `json:"students"`
		Completed   int               `json:"completed"`
		Respondents int               `json:"respondents"`
		Questions   int               `json:"questions"`
		Items       []QuestionSummary `json:"items"`
	}

	QuestionSummary struct {
		QuestionID int          `json:"question_id"`
		GroupName  string       `json:"group_name"`
		OrderNo    int          `json:"order_no"`
		Text       string       `json:"text"`
		Type       string       `json:"type"`
		Answers    int          `json:"answers"`
		Scale      []ScaleCount `json:"scale,omitempty"`
		Clusters   []Cluster    `json:"clusters,omitempty"`
	}

	ScaleCount struct {
		Value int    `json:"value"`
		Label string `json:"label"`
		Count int    `json:"count"`
	}

	// Cluster groups open answers that only differ by case, spacing or trailing punctuation.
	Cluster struct {
		Text  string `json:"text"`
		Count int    `json:"count"`
	}
)

// displayText collapses every run of whitespace into a single space.
func displayText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// clusterKey drops trailing punctuation and separators, then lower-cases.
func clusterKey(display string) string {
	return strings.ToLower(strings.TrimRightFunc(display, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.In(r, unicode.Z)
	}))
}

// clusterAnswers groups texts by canonical key, most frequent first.
// Each cluster is shown with the first display form met.
func clusterAnswers(texts []string) []Cluster {
	idx := make(map[string]int)
	clusters := make([]Cluster, 0)
	for _, t := range texts {
		display := displayText(t)
		if display == "" {
			continue
		}
		key := clusterKey(display)
		if i, ok := idx[key]; ok {
			clusters[i].Count++
			continue
		}
		idx[key] = len(clusters)
		clusters = append(clusters, Cluster{Text: display, Count: 1})
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Count > clusters[j].Count
	})
	return clusters
}
