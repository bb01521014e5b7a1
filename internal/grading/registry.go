package grading

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/store"
)

// defaultMetrics is the canonical rubric seeded into fresh installs. Weight 1
// and max score 10 across the board; evaluators tune them afterwards.
var defaultMetrics = []models.GradingMetric{
	{Name: "Code Quality", Description: "Readability, structure and style of the source code"},
	{Name: "Functionality", Description: "The project does what it claims to do"},
	{Name: "UI Design", Description: "Visual design of the user interface"},
	{Name: "User Experience", Description: "Ease and pleasantness of use"},
	{Name: "Responsiveness", Description: "Behavior across screen sizes and devices"},
	{Name: "Documentation", Description: "README, setup instructions and inline docs"},
	{Name: "Creativity", Description: "Originality of the idea and its execution"},
	{Name: "Technology Use", Description: "Appropriate choice and use of technologies"},
	{Name: "Performance", Description: "Speed and resource behavior under normal use"},
	{Name: "Deployment", Description: "The project is deployed and reachable"},
}

// Registry owns the metric catalog: bounds checking, uniqueness and the
// default rubric. Storage-level conflicts surface as typed errors from the
// store and pass through unchanged.
type Registry struct {
	store    store.GradingStore
	validate *validator.Validate
}

func NewRegistry(s store.GradingStore) *Registry {
	return &Registry{
		store:    s,
		validate: validator.New(),
	}
}

func (r *Registry) ListMetrics(activeOnly bool) ([]models.GradingMetric, error) {
	return r.store.ListMetrics(activeOnly)
}

func (r *Registry) GetMetric(id int64) (*models.GradingMetric, error) {
	metric, err := r.store.GetMetric(id)
	if err != nil {
		return nil, err
	}
	if metric == nil {
		return nil, &models.NotFoundError{Msg: fmt.Sprintf("metric %d not found", id)}
	}
	return metric, nil
}

func (r *Registry) CreateMetric(req models.MetricCreate) (*models.GradingMetric, error) {
	if err := r.validate.Struct(req); err != nil {
		return nil, AsValidationError(err)
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	metric := &models.GradingMetric{
		Name:        req.Name,
		Description: req.Description,
		MaxScore:    req.MaxScore,
		Weight:      req.Weight,
		IsActive:    isActive,
	}
	if err := r.store.CreateMetric(metric); err != nil {
		return nil, err
	}
	return metric, nil
}

// UpdateMetric applies a partial update; only supplied fields change and each
// changed field is re-checked against its bound.
func (r *Registry) UpdateMetric(id int64, upd models.MetricUpdate) (*models.GradingMetric, error) {
	if err := r.validate.Struct(upd); err != nil {
		return nil, AsValidationError(err)
	}

	metric, err := r.GetMetric(id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		metric.Name = *upd.Name
	}
	if upd.Description != nil {
		metric.Description = *upd.Description
	}
	if upd.MaxScore != nil {
		metric.MaxScore = *upd.MaxScore
	}
	if upd.Weight != nil {
		metric.Weight = *upd.Weight
	}
	if upd.IsActive != nil {
		metric.IsActive = *upd.IsActive
	}

	if err := r.store.UpdateMetric(metric); err != nil {
		return nil, err
	}
	return metric, nil
}

// DeleteMetric removes a metric permanently. Metrics referenced by any grade
// cannot be deleted; deactivate those instead so historical grades stay valid.
func (r *Registry) DeleteMetric(id int64) error {
	return r.store.DeleteMetric(id)
}

// SeedDefaults inserts the canonical rubric, skipping names that already
// exist. Safe to call on every startup.
func (r *Registry) SeedDefaults() ([]models.GradingMetric, error) {
	var created []models.GradingMetric
	for _, def := range defaultMetrics {
		existing, err := r.store.GetMetricByName(def.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check default metric %q: %w", def.Name, err)
		}
		if existing != nil {
			continue
		}

		metric := def
		metric.MaxScore = 10
		metric.Weight = 1
		metric.IsActive = true
		if err := r.store.CreateMetric(&metric); err != nil {
			return nil, fmt.Errorf("failed to seed metric %q: %w", def.Name, err)
		}
		created = append(created, metric)
	}
	return created, nil
}

// AsValidationError flattens validator output into one report listing every
// offending field.
func AsValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s: failed %q check", fe.Field(), fe.Tag()))
	}
	return models.NewValidationError(problems...)
}
