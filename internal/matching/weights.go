package matching

import (
	"fmt"
	"math"

	"rekrut-portal/config"
)

// Dimension names a scoring dimension in the breakdown.
type Dimension string

const (
	DimensionEducation  Dimension = "education"
	DimensionExperience Dimension = "experience"
	DimensionSkills     Dimension = "skills"
	DimensionAge        Dimension = "age"
	DimensionGender     Dimension = "gender"
	DimensionLocation   Dimension = "location"
)

// Weights is the configurable weight vector fed into the scoring formula.
// The system historically carried two hard-coded vectors, one on the
// requisition side and one on the candidate eligibility side; both are kept
// here as named values and the engine takes whichever it is given.
type Weights struct {
	Education  float64 `json:"education"`
	Experience float64 `json:"experience"`
	Skills     float64 `json:"skills"`
	Age        float64 `json:"age"`
	Gender     float64 `json:"gender"`
	Location   float64 `json:"location"`
}

// DefaultWeights is the reference forward-matching vector. Location is not
// scored on the requisition side.
func DefaultWeights() Weights {
	return Weights{
		Education:  0.25,
		Experience: 0.30,
		Skills:     0.25,
		Age:        0.15,
		Gender:     0.05,
		Location:   0,
	}
}

// EligibilityWeights is the candidate-side quick-eligibility vector, which
// scores location and softens the demographic dimensions.
func EligibilityWeights() Weights {
	return Weights{
		Education:  0.20,
		Experience: 0.25,
		Skills:     0.25,
		Age:        0.10,
		Gender:     0.05,
		Location:   0.15,
	}
}

// WeightsFromConfig builds the forward vector from configuration,
// falling back to the reference weighting when unset.
func WeightsFromConfig(cfg config.MatchingConfig) Weights {
	w := Weights{
		Education:  cfg.EducationWeight,
		Experience: cfg.ExperienceWeight,
		Skills:     cfg.SkillsWeight,
		Age:        cfg.AgeWeight,
		Gender:     cfg.GenderWeight,
	}
	if w.Sum() == 0 {
		return DefaultWeights()
	}
	return w
}

// Sum returns the total of all dimension weights.
func (w Weights) Sum() float64 {
	return w.Education + w.Experience + w.Skills + w.Age + w.Gender + w.Location
}

// Validate checks that the vector sums to 1.0 and carries no negative
// weights.
func (w Weights) Validate() error {
	for name, v := range map[Dimension]float64{
		DimensionEducation:  w.Education,
		DimensionExperience: w.Experience,
		DimensionSkills:     w.Skills,
		DimensionAge:        w.Age,
		DimensionGender:     w.Gender,
		DimensionLocation:   w.Location,
	} {
		if v < 0 {
			return fmt.Errorf("weight for %s must not be negative, got %f", name, v)
		}
	}

	if sum := w.Sum(); math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("weights must sum to 1.0, got %f", sum)
	}
	return nil
}

// Of returns the weight assigned to the given dimension.
func (w Weights) Of(d Dimension) float64 {
	switch d {
	case DimensionEducation:
		return w.Education
	case DimensionExperience:
		return w.Experience
	case DimensionSkills:
		return w.Skills
	case DimensionAge:
		return w.Age
	case DimensionGender:
		return w.Gender
	case DimensionLocation:
		return w.Location
	default:
		return 0
	}
}
