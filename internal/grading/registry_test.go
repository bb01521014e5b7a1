package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/store"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Close() error                     { return nil }
func (m *MockStore) ApplyMigrations(dir string) error { return nil }

func (m *MockStore) ListMetrics(activeOnly bool) ([]models.GradingMetric, error) {
	args := m.Called(activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.GradingMetric), args.Error(1)
}

func (m *MockStore) GetMetric(id int64) (*models.GradingMetric, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GradingMetric), args.Error(1)
}

func (m *MockStore) GetMetricByName(name string) (*models.GradingMetric, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GradingMetric), args.Error(1)
}

func (m *MockStore) CreateMetric(metric *models.GradingMetric) error {
	args := m.Called(metric)
	return args.Error(0)
}

func (m *MockStore) UpdateMetric(metric *models.GradingMetric) error {
	args := m.Called(metric)
	return args.Error(0)
}

func (m *MockStore) DeleteMetric(id int64) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStore) GetGrade(projectID string) (*models.ProjectGrade, error) { return nil, nil }
func (m *MockStore) UpsertGrade(grade *models.ProjectGrade) (*models.ProjectGrade, error) {
	return nil, nil
}
func (m *MockStore) DeleteGrade(projectID string) error           { return nil }
func (m *MockStore) ProjectExists(projectID string) (bool, error) { return false, nil }
func (m *MockStore) CreateProject(project *models.Project) error  { return nil }
func (m *MockStore) ListUngradedProjects() ([]models.Project, error) {
	return nil, nil
}
func (m *MockStore) FetchGradingReport() ([]store.GradingReportRow, error) {
	return nil, nil
}

func TestRegistry_CreateMetric_Validation(t *testing.T) {
	registry := NewRegistry(new(MockStore))

	testCases := []struct {
		name string
		req  models.MetricCreate
	}{
		{
			name: "max score above bound",
			req:  models.MetricCreate{Name: "Code Quality", MaxScore: 11, Weight: 1},
		},
		{
			name: "weight below bound",
			req:  models.MetricCreate{Name: "Code Quality", MaxScore: 10, Weight: 0.05},
		},
		{
			name: "weight above bound",
			req:  models.MetricCreate{Name: "Code Quality", MaxScore: 10, Weight: 5.5},
		},
		{
			name: "missing name",
			req:  models.MetricCreate{MaxScore: 10, Weight: 1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := registry.CreateMetric(tc.req)
			var vErr *models.ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

func TestRegistry_CreateMetric_ReportsAllFields(t *testing.T) {
	registry := NewRegistry(new(MockStore))

	_, err := registry.CreateMetric(models.MetricCreate{MaxScore: 99, Weight: 9})
	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Problems, 3) // name, max score and weight all wrong
}

func TestRegistry_CreateMetric_DefaultsToActive(t *testing.T) {
	s := new(MockStore)
	s.On("CreateMetric", mock.MatchedBy(func(m *models.GradingMetric) bool {
		return m.IsActive
	})).Return(nil).Once()

	registry := NewRegistry(s)
	metric, err := registry.CreateMetric(models.MetricCreate{Name: "Code Quality", MaxScore: 10, Weight: 1})
	require.NoError(t, err)
	assert.True(t, metric.IsActive)

	s.AssertExpectations(t)
}

func TestRegistry_CreateMetric_ConflictPassesThrough(t *testing.T) {
	s := new(MockStore)
	s.On("CreateMetric", mock.Anything).
		Return(&models.ConflictError{Msg: `metric "Code Quality" already exists`}).Once()

	registry := NewRegistry(s)
	_, err := registry.CreateMetric(models.MetricCreate{Name: "Code Quality", MaxScore: 10, Weight: 1})

	var cErr *models.ConflictError
	assert.ErrorAs(t, err, &cErr)
	s.AssertExpectations(t)
}

func TestRegistry_UpdateMetric(t *testing.T) {
	t.Run("unknown id", func(t *testing.T) {
		s := new(MockStore)
		s.On("GetMetric", int64(42)).Return(nil, nil).Once()

		registry := NewRegistry(s)
		weight := 2.0
		_, err := registry.UpdateMetric(42, models.MetricUpdate{Weight: &weight})

		var nfErr *models.NotFoundError
		assert.ErrorAs(t, err, &nfErr)
	})

	t.Run("only supplied fields change", func(t *testing.T) {
		s := new(MockStore)
		s.On("GetMetric", int64(7)).Return(&models.GradingMetric{
			ID: 7, Name: "Code Quality", MaxScore: 10, Weight: 1, IsActive: true,
		}, nil).Once()
		s.On("UpdateMetric", mock.MatchedBy(func(m *models.GradingMetric) bool {
			return m.Name == "Code Quality" && m.MaxScore == 10 && m.Weight == 2.5 && !m.IsActive
		})).Return(nil).Once()

		registry := NewRegistry(s)
		weight := 2.5
		inactive := false
		updated, err := registry.UpdateMetric(7, models.MetricUpdate{Weight: &weight, IsActive: &inactive})
		require.NoError(t, err)
		assert.Equal(t, "Code Quality", updated.Name)
		assert.Equal(t, 2.5, updated.Weight)
		assert.False(t, updated.IsActive)

		s.AssertExpectations(t)
	})

	t.Run("changed field re-validated", func(t *testing.T) {
		registry := NewRegistry(new(MockStore))
		maxScore := 20
		_, err := registry.UpdateMetric(7, models.MetricUpdate{MaxScore: &maxScore})

		var vErr *models.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})
}

func TestRegistry_SeedDefaults_SkipsExisting(t *testing.T) {
	s := new(MockStore)
	for _, def := range defaultMetrics {
		if def.Name == "Code Quality" {
			s.On("GetMetricByName", def.Name).
				Return(&models.GradingMetric{ID: 1, Name: def.Name}, nil).Once()
			continue
		}
		s.On("GetMetricByName", def.Name).Return(nil, nil).Once()
		s.On("CreateMetric", mock.MatchedBy(func(m *models.GradingMetric) bool {
			return m.Name == def.Name && m.MaxScore == 10 && m.Weight == 1 && m.IsActive
		})).Return(nil).Once()
	}

	registry := NewRegistry(s)
	created, err := registry.SeedDefaults()
	require.NoError(t, err)
	assert.Len(t, created, len(defaultMetrics)-1)

	s.AssertExpectations(t)
}
