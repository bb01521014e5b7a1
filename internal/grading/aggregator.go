package grading

import (
	"fmt"
	"math"

	"github.com/shrimpsizemoose/semla/internal/models"
)

// Aggregate is the derived result of weighing a set of metric scores.
type Aggregate struct {
	TotalScore  float64
	MaxPossible float64
	Percentage  float64
	FinalGrade  string
}

// ComputeAggregate derives the weighted totals, normalized percentage and
// letter grade for a set of scores. Only the metrics actually scored count
// towards the denominator. Pure: no I/O, result independent of score order.
func ComputeAggregate(scores []models.MetricScore, metricDefs map[int64]models.GradingMetric) (*Aggregate, error) {
	if len(scores) == 0 {
		return nil, models.NewValidationError("at least one metric score required")
	}

	var problems []string
	seen := make(map[int64]bool, len(scores))
	for _, s := range scores {
		if seen[s.MetricID] {
			problems = append(problems, fmt.Sprintf("duplicate score for metric %d", s.MetricID))
			continue
		}
		seen[s.MetricID] = true

		def, ok := metricDefs[s.MetricID]
		if !ok {
			problems = append(problems, fmt.Sprintf("unknown metric %d", s.MetricID))
			continue
		}
		if s.Score < 1 || s.Score > def.MaxScore {
			problems = append(problems, fmt.Sprintf("score out of range for metric %d: got %d, want 1..%d", s.MetricID, s.Score, def.MaxScore))
		}
	}
	if len(problems) > 0 {
		return nil, models.NewValidationError(problems...)
	}

	var total, maxPossible float64
	for _, s := range scores {
		def := metricDefs[s.MetricID]
		total += float64(s.Score) * def.Weight
		maxPossible += float64(def.MaxScore) * def.Weight
	}

	percentage := total / maxPossible * 100
	percentage = math.Round(percentage*100) / 100
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	return &Aggregate{
		TotalScore:  total,
		MaxPossible: maxPossible,
		Percentage:  percentage,
		FinalGrade:  letterFor(percentage),
	}, nil
}

func letterFor(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "E"
	}
}
