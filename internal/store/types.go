package store

// GradingReportRow is one line of the grading summary consumed by the report
// endpoint and the sheet exporter.
type GradingReportRow struct {
	ProjectID       string  `db:"project_id"`
	Title           string  `db:"title"`
	Author          string  `db:"author"`
	GradedBy        string  `db:"graded_by"`
	PercentageScore float64 `db:"percentage_score"`
	FinalGrade      string  `db:"final_grade"`
	UpdatedAt       int64   `db:"updated_at"`
}
