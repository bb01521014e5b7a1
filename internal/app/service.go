package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/shrimpsizemoose/semla/internal/grading"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/store"
)

// Service wires the grading engine together: metric registry, aggregation and
// the persistent store. One instance is built in main and handed to the
// handlers; there is no package-level state.
type Service struct {
	Config   *Config
	Store    store.GradingStore
	Registry *grading.Registry
	Auth     *Auth
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := NewStore(config.Database.DSN, config.Database.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	auth, err := NewAuth(config)
	if err != nil {
		return nil, fmt.Errorf("failed to init auth: %w", err)
	}

	return &Service{
		Config:   config,
		Store:    store,
		Registry: grading.NewRegistry(store),
		Auth:     auth,
	}, nil
}

// GradeProject validates the request against the metric catalog, computes the
// weighted aggregate and persists grade plus scores atomically. Re-grading an
// already graded project replaces the whole score set (last committer wins).
func (s *Service) GradeProject(projectID string, req models.GradeRequest) (*models.ProjectGrade, error) {
	if _, err := uuid.Parse(projectID); err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("project id %q is not a valid UUID", projectID))
	}
	if err := req.Validate(); err != nil {
		return nil, grading.AsValidationError(err)
	}

	exists, err := s.Store.ProjectExists(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to check project: %w", err)
	}
	if !exists {
		return nil, &models.NotFoundError{Msg: "project not found"}
	}

	// Deactivated metrics stay gradeable so re-grades of old projects keep
	// working; hence activeOnly=false.
	metrics, err := s.Store.ListMetrics(false)
	if err != nil {
		return nil, fmt.Errorf("failed to load metric catalog: %w", err)
	}
	defs := make(map[int64]models.GradingMetric, len(metrics))
	for _, m := range metrics {
		defs[m.ID] = m
	}

	agg, err := grading.ComputeAggregate(req.Scores, defs)
	if err != nil {
		return nil, err
	}

	grade := &models.ProjectGrade{
		ProjectID:       projectID,
		GradedBy:        req.GradedBy,
		TotalScore:      agg.TotalScore,
		PercentageScore: agg.Percentage,
		FinalGrade:      agg.FinalGrade,
		OverallFeedback: req.OverallFeedback,
		Scores:          req.Scores,
	}

	persisted, err := s.Store.UpsertGrade(grade)
	if err != nil {
		return nil, err
	}
	return persisted, nil
}

func (s *Service) GetProjectGrade(projectID string) (*models.ProjectGrade, error) {
	grade, err := s.Store.GetGrade(projectID)
	if err != nil {
		return nil, err
	}
	if grade == nil {
		return nil, &models.NotFoundError{Msg: fmt.Sprintf("no grade for project %s", projectID)}
	}
	return grade, nil
}

// DeleteProjectGrade removes a project's grade and its scores. Returns false
// without error when there was nothing to delete, so callers can tell
// "already absent" apart from a storage fault.
func (s *Service) DeleteProjectGrade(projectID string) (bool, error) {
	err := s.Store.DeleteGrade(projectID)
	if err != nil {
		var notFound *models.NotFoundError
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetProjectsForGrading lists the backlog: projects without a grade, oldest
// first.
func (s *Service) GetProjectsForGrading() ([]models.Project, error) {
	return s.Store.ListUngradedProjects()
}

func (s *Service) ValidateAuthAndEvaluator(r *http.Request, evaluator string) error {
	if !s.Config.Server.EnableAuth {
		return nil
	}

	authHeader := r.Header.Get(s.Auth.tokenHeader)
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return fmt.Errorf("invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")

	return s.Auth.ValidateToken(r.Context(), evaluator, token)
}

func (s *Service) ValidateHeaders(headers map[string][]string) bool {
	for _, required := range s.Config.API.RequiredHeaders {
		value := headers[http.CanonicalHeaderKey(required.Name)]
		if len(value) == 0 || !strings.EqualFold(value[0], required.Value) {
			return false
		}
	}
	return true
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.Auth.Close(); err != nil {
		errs = append(errs, fmt.Errorf("auth: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
