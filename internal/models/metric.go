package models

import (
	"github.com/go-playground/validator/v10"
)

// GradingMetric is one rubric criterion. Names are unique across the whole
// catalog, active or not.
type GradingMetric struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name" validate:"required,min=1,max=100"`
	Description string  `db:"description" json:"description,omitempty"`
	MaxScore    int     `db:"max_score" json:"max_score" validate:"required,min=1,max=10"`
	Weight      float64 `db:"weight" json:"weight" validate:"required,gte=0.1,lte=5"`
	IsActive    bool    `db:"is_active" json:"is_active"`
	CreatedAt   int64   `db:"created_at" json:"created_at"`
	UpdatedAt   int64   `db:"updated_at" json:"updated_at"`
}

// MetricCreate is the request payload for adding a metric to the catalog.
type MetricCreate struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Description string  `json:"description"`
	MaxScore    int     `json:"max_score" validate:"required,min=1,max=10"`
	Weight      float64 `json:"weight" validate:"required,gte=0.1,lte=5"`
	IsActive    *bool   `json:"is_active"`
}

// MetricUpdate carries a partial update: nil fields stay untouched.
type MetricUpdate struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string  `json:"description"`
	MaxScore    *int     `json:"max_score" validate:"omitempty,min=1,max=10"`
	Weight      *float64 `json:"weight" validate:"omitempty,gte=0.1,lte=5"`
	IsActive    *bool    `json:"is_active"`
}

func (m *GradingMetric) Validate() error {
	validate := validator.New()
	return validate.Struct(m)
}

func (m *MetricCreate) Validate() error {
	validate := validator.New()
	return validate.Struct(m)
}

func (m *MetricUpdate) Validate() error {
	validate := validator.New()
	return validate.Struct(m)
}
