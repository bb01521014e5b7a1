package models

import (
	"github.com/go-playground/validator/v10"
)

// MetricScore is one evaluator's score for one metric within a project grade.
// The upper bound (metric.MaxScore) is checked against the catalog at grading
// time, not by the struct tag.
type MetricScore struct {
	ID             int64  `db:"id" json:"-"`
	ProjectGradeID int64  `db:"project_grade_id" json:"-"`
	MetricID       int64  `db:"metric_id" json:"metric_id" validate:"required"`
	Score          int    `db:"score" json:"score" validate:"required,min=1"`
	Feedback       string `db:"feedback" json:"feedback,omitempty"`
}

// ProjectGrade is the aggregate grading record for one project. It owns its
// MetricScore rows: they are replaced wholesale on re-grade and removed with
// the grade.
type ProjectGrade struct {
	ID              int64   `db:"id" json:"id"`
	ProjectID       string  `db:"project_id" json:"project_id"`
	GradedBy        string  `db:"graded_by" json:"graded_by"`
	TotalScore      float64 `db:"total_score" json:"total_score"`
	PercentageScore float64 `db:"percentage_score" json:"percentage_score"`
	FinalGrade      string  `db:"final_grade" json:"final_grade"`
	OverallFeedback string  `db:"overall_feedback" json:"overall_feedback,omitempty"`
	CreatedAt       int64   `db:"created_at" json:"created_at"`
	UpdatedAt       int64   `db:"updated_at" json:"updated_at"`

	Scores []MetricScore `json:"scores"`
}

// GradeRequest is the submit-or-replace payload for a project's grade.
type GradeRequest struct {
	GradedBy        string        `json:"graded_by" validate:"required,min=1,max=100"`
	Scores          []MetricScore `json:"scores" validate:"required,min=1,dive"`
	OverallFeedback string        `json:"overall_feedback"`
}

func (r *GradeRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
