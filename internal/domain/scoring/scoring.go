// Package scoring computes the weighted composite score and letter grade for
// one supplier participation.
package scoring

import "fmt"

// Fixed evaluation criteria. Each criterion has a maximum score and a weight;
// the weighted sum is therefore bounded to a 0-30 scale at the given maxima.
const (
	PriceMax       = 30.0
	QualityMax     = 40.0
	DeliveryMax    = 20.0
	ReliabilityMax = 10.0

	PriceWeight       = 0.3
	QualityWeight     = 0.4
	DeliveryWeight    = 0.2
	ReliabilityWeight = 0.1
)

// Grade thresholds, compared against the weighted score times 100.
//
// NOTE: the weighted sum is already bounded to 0-30 by the criterion maxima,
// so weighted*100 grades nearly everything A unless the per-criterion inputs
// are fractions. The formula is kept exactly as the product defines it;
// rescaling is a product decision, not an implementation one.
const (
	gradeScaleFactor = 100.0
	gradeAThreshold  = 90.0
	gradeBThreshold  = 80.0
	gradeCThreshold  = 70.0
)

// Input carries the four per-criterion scores for one participation.
type Input struct {
	Price       float64
	Quality     float64
	Delivery    float64
	Reliability float64
}

// Result contains the derived fields stored on the evaluation.
type Result struct {
	WeightedScore float64
	Grade         string
}

// Validate checks every criterion score against its bounds.
func (in Input) Validate() error {
	checks := []struct {
		name  string
		score float64
		max   float64
	}{
		{"price", in.Price, PriceMax},
		{"quality", in.Quality, QualityMax},
		{"delivery", in.Delivery, DeliveryMax},
		{"reliability", in.Reliability, ReliabilityMax},
	}
	for _, c := range checks {
		if c.score < 0 || c.score > c.max {
			return fmt.Errorf("%s score %.2f out of range [0, %.0f]", c.name, c.score, c.max)
		}
	}
	return nil
}

// Score computes the weighted composite score and grade for the input.
// Increasing any single criterion score never decreases the weighted score.
func Score(in Input) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	weighted := in.Price*PriceWeight +
		in.Quality*QualityWeight +
		in.Delivery*DeliveryWeight +
		in.Reliability*ReliabilityWeight
	return Result{
		WeightedScore: weighted,
		Grade:         Grade(weighted),
	}, nil
}

// Grade maps a weighted score to its letter grade.
func Grade(weighted float64) string {
	scaled := weighted * gradeScaleFactor
	switch {
	case scaled >= gradeAThreshold:
		return "A"
	case scaled >= gradeBThreshold:
		return "B"
	case scaled >= gradeCThreshold:
		return "C"
	default:
		return "D"
	}
}
