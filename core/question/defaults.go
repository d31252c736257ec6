package question

import "github.com/volatiletech/null/v8"

const (
	group1 = "Nhóm 1 – Thực tập tại đơn vị"
	group2 = "Nhóm 2 – Khóa BIM–Revit và 2 chuyên đề ở trường"
	group3 = "Nhóm 3 – Tổng thể học phần thực tập tốt nghiệp"
	group4 = "Nhóm 4 – Nguyện vọng đăng ký đồ án tốt nghiệp"
)

func scale(group string, order int, text, low, mid, high string) Question {
	return Question{
		GroupName: group,
		OrderNo:   order,
		Text:      text,
		Type:      TypeScale,
		LowLabel:  null.StringFrom(low),
		MidLabel:  null.StringFrom(mid),
		HighLabel: null.StringFrom(high),
	}
}

func open(group string, order int, text string) Question {
	return Question{GroupName: group, OrderNo: order, Text: text, Type: TypeOpen}
}

// Defaults returns the fixed questionnaire installed on first run and on every reset.
func Defaults() []Question {
	return []Question{
		scale(group1, 1, "Môi trường làm việc thực tế có đúng như em mong đợi?", "Không", "Tương đối", "Rất đúng"),
		scale(group1, 2, "Em đã học hỏi được nhiều kiến thức/kỹ năng thực tế?", "Ít", "Trung bình", "Nhiều"),
		scale(group1, 3, "Mức độ hỗ trợ của đơn vị thực tập dành cho em?", "Thấp", "Trung bình", "Cao"),
		open(group1, 4, "Khó khăn lớn nhất em gặp trong thời gian thực tập và đề xuất cải thiện?"),

		scale(group2, 5, "Khối lượng và thời gian học BIM–Revit 4 buổi có hợp lý?", "Không", "Tạm được", "Rất hợp lý"),
		scale(group2, 6, "Mức độ khó của chuyên đề kỹ thuật 1 (tự tìm hiểu BIM & Revit)?", "Dễ", "Vừa", "Khó"),
		scale(group2, 7, "Mức độ khó của chuyên đề kỹ thuật 2 (mô hình hóa công trình thủy lợi)?", "Dễ", "Vừa", "Khó"),
		open(group2, 8, "Điều bạn mong muốn cải thiện về khóa học BIM–Revit?"),

		open(group3, 9, "Qua học phần này, em đã học được những kiến thức hoặc kỹ năng gì?"),
		open(group3, 10, "Điều em mong muốn cải thiện nhất ở học phần này là gì?"),

		scale(group4, 11, "Nguyện vọng đăng ký đồ án tốt nghiệp sắp tới của em theo bộ môn nào?", "BM CT Biển và ĐT", "BM Thủy công", "BM Thủy điện và NLTT"),
	}
}
