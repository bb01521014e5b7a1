package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/semla/internal/models"
)

func testMetricDefs() map[int64]models.GradingMetric {
	return map[int64]models.GradingMetric{
		1: {ID: 1, Name: "Code Quality", MaxScore: 10, Weight: 1},
		2: {ID: 2, Name: "Functionality", MaxScore: 10, Weight: 2},
		3: {ID: 3, Name: "Deployment", MaxScore: 10, Weight: 5},
		4: {ID: 4, Name: "Documentation", MaxScore: 5, Weight: 0.5},
	}
}

func TestComputeAggregate(t *testing.T) {
	testCases := []struct {
		name               string
		scores             []models.MetricScore
		expectedTotal      float64
		expectedMax        float64
		expectedPercentage float64
		expectedGrade      string
	}{
		{
			name: "two metrics, mixed weights",
			scores: []models.MetricScore{
				{MetricID: 1, Score: 8},
				{MetricID: 2, Score: 9},
			},
			expectedTotal:      26,
			expectedMax:        30,
			expectedPercentage: 86.67,
			expectedGrade:      "B",
		},
		{
			name: "perfect scores give exactly 100 and an A",
			scores: []models.MetricScore{
				{MetricID: 1, Score: 10},
				{MetricID: 2, Score: 10},
			},
			expectedTotal:      30,
			expectedMax:        30,
			expectedPercentage: 100,
			expectedGrade:      "A",
		},
		{
			name: "heaviest metric contributes 50 to both sides",
			scores: []models.MetricScore{
				{MetricID: 3, Score: 10},
			},
			expectedTotal:      50,
			expectedMax:        50,
			expectedPercentage: 100,
			expectedGrade:      "A",
		},
		{
			name: "only scored metrics count towards the denominator",
			scores: []models.MetricScore{
				{MetricID: 4, Score: 3},
			},
			expectedTotal:      1.5,
			expectedMax:        2.5,
			expectedPercentage: 60,
			expectedGrade:      "D",
		},
		{
			name: "lowest band",
			scores: []models.MetricScore{
				{MetricID: 1, Score: 1},
				{MetricID: 2, Score: 1},
			},
			expectedTotal:      3,
			expectedMax:        30,
			expectedPercentage: 10,
			expectedGrade:      "E",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			agg, err := ComputeAggregate(tc.scores, testMetricDefs())
			require.NoError(t, err)
			assert.Equal(t, tc.expectedTotal, agg.TotalScore)
			assert.Equal(t, tc.expectedMax, agg.MaxPossible)
			assert.Equal(t, tc.expectedPercentage, agg.Percentage)
			assert.Equal(t, tc.expectedGrade, agg.FinalGrade)
		})
	}
}

func TestComputeAggregate_OrderIndependent(t *testing.T) {
	forward := []models.MetricScore{
		{MetricID: 1, Score: 8},
		{MetricID: 2, Score: 9},
		{MetricID: 4, Score: 3},
	}
	backward := []models.MetricScore{
		{MetricID: 4, Score: 3},
		{MetricID: 2, Score: 9},
		{MetricID: 1, Score: 8},
	}

	a, err := ComputeAggregate(forward, testMetricDefs())
	require.NoError(t, err)
	b, err := ComputeAggregate(backward, testMetricDefs())
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestComputeAggregate_ValidationFailures(t *testing.T) {
	t.Run("empty scores", func(t *testing.T) {
		_, err := ComputeAggregate(nil, testMetricDefs())
		var vErr *models.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Problems, "at least one metric score required")
	})

	t.Run("unknown metric", func(t *testing.T) {
		_, err := ComputeAggregate([]models.MetricScore{{MetricID: 999, Score: 5}}, testMetricDefs())
		var vErr *models.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Problems, "unknown metric 999")
	})

	t.Run("score above metric maximum", func(t *testing.T) {
		_, err := ComputeAggregate([]models.MetricScore{{MetricID: 4, Score: 6}}, testMetricDefs())
		var vErr *models.ValidationError
		require.ErrorAs(t, err, &vErr)
		require.Len(t, vErr.Problems, 1)
		assert.Contains(t, vErr.Problems[0], "score out of range for metric 4")
	})

	t.Run("duplicate metric", func(t *testing.T) {
		_, err := ComputeAggregate([]models.MetricScore{
			{MetricID: 1, Score: 5},
			{MetricID: 1, Score: 7},
		}, testMetricDefs())
		var vErr *models.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Problems, "duplicate score for metric 1")
	})

	t.Run("all problems reported at once", func(t *testing.T) {
		_, err := ComputeAggregate([]models.MetricScore{
			{MetricID: 999, Score: 5},
			{MetricID: 4, Score: 6},
			{MetricID: 1, Score: 0},
		}, testMetricDefs())
		var vErr *models.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Len(t, vErr.Problems, 3)
	})
}

func TestComputeAggregate_PercentageAlwaysInBounds(t *testing.T) {
	defs := testMetricDefs()
	for metricID, def := range defs {
		for score := 1; score <= def.MaxScore; score++ {
			agg, err := ComputeAggregate([]models.MetricScore{{MetricID: metricID, Score: score}}, defs)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, agg.Percentage, 0.0)
			assert.LessOrEqual(t, agg.Percentage, 100.0)
		}
	}
}

func TestLetterBanding(t *testing.T) {
	testCases := []struct {
		percentage float64
		expected   string
	}{
		{100, "A"},
		{90, "A"},
		{89.99, "B"},
		{80, "B"},
		{79.99, "C"},
		{70, "C"},
		{69.99, "D"},
		{60, "D"},
		{59.99, "E"},
		{0, "E"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, letterFor(tc.percentage), "percentage %.2f", tc.percentage)
	}
}
