package result

import (
	"context"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/question"
	"github.com/trezcool/khaosat/core/student"
)

type (
	Repository interface {
		// QueryExportRows joins every response with its student and question, in insertion order.
		QueryExportRows(ctx context.Context, exec ...core.DBExecutor) ([]ExportRow, error)
		// CountStudents returns the roster size and how many students completed the survey.
		CountStudents(ctx context.Context, exec ...core.DBExecutor) (total, completed int, err error)
	}

	StudentGetter interface {
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (student.Student, error)
	}

	QuestionLister interface {
		QueryQuestions(ctx context.Context, exec ...core.DBExecutor) ([]question.Question, error)
	}

	// Service is the Result Aggregator. It never writes.
	Service struct {
		repo      Repository
		students  StudentGetter
		questions QuestionLister
	}
)

func NewService(repo Repository, students StudentGetter, questions QuestionLister) *Service {
	return &Service{repo: repo, students: students, questions: questions}
}

func (svc *Service) ExportRows(ctx context.Context, sess core.Session) ([]ExportRow, error) {
	if err := sess.RequireAdmin(); err != nil {
		return nil, err
	}
	return svc.repo.QueryExportRows(ctx)
}

// Summary is available to admins and to students who completed the survey.
func (svc *Service) Summary(ctx context.Context, sess core.Session) (Summary, error) {
	if err := svc.canViewSummary(ctx, sess); err != nil {
		return Summary{}, err
	}

	questions, err := svc.questions.QueryQuestions(ctx)
	if err != nil {
		return Summary{}, err
	}
	rows, err := svc.repo.QueryExportRows(ctx)
	if err != nil {
		return Summary{}, err
	}
	total, completed, err := svc.repo.CountStudents(ctx)
	if err != nil {
		return Summary{}, err
	}
	return summarize(questions, rows, total, completed), nil
}

func (svc *Service) canViewSummary(ctx context.Context, sess core.Session) error {
	if sess.IsAdmin {
		return nil
	}
	studentID, err := sess.RequireStudent()
	if err != nil {
		return err
	}
	stud, err := svc.students.GetStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if !stud.Completed {
		return core.ErrForbidden
	}
	return nil
}

func summarize(questions []question.Question, rows []ExportRow, total, completed int) Summary {
	sum := Summary{
		Students:  total,
		Completed: completed,
		Questions: len(questions),
		Items:     make([]QuestionSummary, 0, len(questions)),
	}

	respondents := make(map[string]struct{})
	scaleCounts := make(map[int]map[int]int)
	texts := make(map[int][]string)
	answers := make(map[int]int)
	for _, r := range rows {
		respondents[r.StudentID] = struct{}{}
		answers[r.QuestionID]++
		if r.ValueInt.Valid {
			if scaleCounts[r.QuestionID] == nil {
				scaleCounts[r.QuestionID] = make(map[int]int)
			}
			scaleCounts[r.QuestionID][r.ValueInt.Int]++
		} else if r.ValueText.Valid {
			texts[r.QuestionID] = append(texts[r.QuestionID], r.ValueText.String)
		}
	}
	sum.Respondents = len(respondents)

	for _, q := range questions {
		item := QuestionSummary{
			QuestionID: q.ID,
			GroupName:  q.GroupName,
			OrderNo:    q.OrderNo,
			Text:       q.Text,
			Type:       q.Type,
			Answers:    answers[q.ID],
		}
		if q.IsScale() {
			item.Scale = make([]ScaleCount, 0, question.ScaleMax)
			for v := question.ScaleMin; v <= question.ScaleMax; v++ {
				item.Scale = append(item.Scale, ScaleCount{Value: v, Label: q.Label(v), Count: scaleCounts[q.ID][v]})
			}
		} else {
			item.Clusters = clusterAnswers(texts[q.ID])
		}
		sum.Items = append(sum.Items, item)
	}
	return sum
}
