package matching

import (
	"time"

	"rekrut-portal/internal/models"
)

// ageToleranceYears is the band outside the requisition's age range over
// which the age score decays linearly from 1 to 0.
const ageToleranceYears = 2.0

// unknownBirthDateScore is the documented default when a candidate has no
// birth date on file.
const unknownBirthDateScore = 0.5

// Contribution is one dimension's share of a score, kept for
// explainability and frozen on the application at submission time.
type Contribution struct {
	Weight  float64 `json:"weight"`
	Raw     float64 `json:"raw"`
	Matched bool    `json:"matched"`
}

// Result is the outcome of scoring one candidate against one requisition.
type Result struct {
	Score     float64                    `json:"score"`
	Breakdown map[Dimension]Contribution `json:"breakdown"`
}

// Engine computes deterministic compatibility scores. Score is a pure
// function of its inputs and the injected clock; the engine holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	weights Weights
	now     func() time.Time
}

// NewEngine creates a scoring engine with the given weight vector.
// The vector must validate; callers decide between the forward and the
// eligibility weighting.
func NewEngine(weights Weights) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		weights: weights,
		now:     time.Now,
	}, nil
}

// WithClock replaces the engine's clock, for deterministic tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Weights returns the engine's weight vector.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Score computes the 0..100 compatibility score of a candidate against a
// requisition, with the per-dimension breakdown. Missing optional fields
// never fail scoring; they fall back to documented defaults.
func (e *Engine) Score(req *models.Requisition, cand *models.Candidate) Result {
	raws := map[Dimension]float64{
		DimensionEducation:  scoreEducation(req, cand),
		DimensionExperience: scoreExperience(req, cand),
		DimensionSkills:     scoreSkills(req, cand),
		DimensionAge:        e.scoreAge(req, cand),
		DimensionGender:     scoreGender(req, cand),
		DimensionLocation:   scoreLocation(req, cand),
	}

	breakdown := make(map[Dimension]Contribution, len(raws))
	total := 0.0
	for dim, raw := range raws {
		weight := e.weights.Of(dim)
		breakdown[dim] = Contribution{
			Weight:  weight,
			Raw:     raw,
			Matched: raw >= 1.0,
		}
		total += weight * raw
	}

	score := total * 100
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Result{Score: score, Breakdown: breakdown}
}

// scoreAge gives 1.0 inside the requisition's age range (a missing bound is
// unconstrained), decays linearly to 0 over the tolerance band outside it,
// and defaults to 0.5 when the birth date is unknown.
func (e *Engine) scoreAge(req *models.Requisition, cand *models.Candidate) float64 {
	if req.MinAge == nil && req.MaxAge == nil {
		return 1.0
	}

	age := cand.AgeAt(e.now())
	if age == nil {
		return unknownBirthDateScore
	}

	var distance float64
	switch {
	case req.MinAge != nil && *age < *req.MinAge:
		distance = float64(*req.MinAge - *age)
	case req.MaxAge != nil && *age > *req.MaxAge:
		distance = float64(*age - *req.MaxAge)
	default:
		return 1.0
	}

	if distance >= ageToleranceYears {
		return 0
	}
	return 1.0 - distance/ageToleranceYears
}

// scoreEducation gives 1.0 for an exact set match, otherwise walks the
// education ordinal: at or above the highest required level scores 1.0,
// each step below degrades the score by 0.3.
func scoreEducation(req *models.Requisition, cand *models.Candidate) float64 {
	required := req.GetRequiredEducationLevels()
	if len(required) == 0 {
		return 1.0
	}

	highest := 0
	for _, level := range required {
		if level == cand.EducationLevel {
			return 1.0
		}
		if rank := level.Rank(); rank > highest {
			highest = rank
		}
	}

	rank := cand.EducationLevel.Rank()
	if rank >= highest {
		return 1.0
	}

	raw := 1.0 - 0.3*float64(highest-rank)
	if raw < 0 {
		return 0
	}
	return raw
}

// scoreExperience gives 1.0 when the candidate meets the required months,
// otherwise the fraction of the requirement covered.
func scoreExperience(req *models.Requisition, cand *models.Candidate) float64 {
	if req.MinExperienceMonths <= 0 {
		return 1.0
	}
	if cand.ExperienceMonths >= req.MinExperienceMonths {
		return 1.0
	}
	if cand.ExperienceMonths <= 0 {
		return 0
	}
	return float64(cand.ExperienceMonths) / float64(req.MinExperienceMonths)
}

// scoreSkills is the coverage ratio of the required skill set. No required
// skills means full score regardless of the candidate's tags.
func scoreSkills(req *models.Requisition, cand *models.Candidate) float64 {
	required := req.GetRequiredSkills()
	if len(required) == 0 {
		return 1.0
	}

	owned := make(map[string]struct{})
	for _, skill := range cand.AllSkills() {
		owned[skill] = struct{}{}
	}

	matched := 0
	for _, skill := range required {
		if _, ok := owned[skill]; ok {
			matched++
		}
	}

	return float64(matched) / float64(len(required))
}

// scoreGender is a soft preference: never a hard filter in forward
// matching, an unmatched preference halves the dimension.
func scoreGender(req *models.Requisition, cand *models.Candidate) float64 {
	preferred := req.GetPreferredGenders()
	if len(preferred) == 0 {
		return 1.0
	}
	for _, gender := range preferred {
		if gender == cand.Gender {
			return 1.0
		}
	}
	return 0.5
}

// scoreLocation is the eligibility-only location check: full score when
// unconstrained or the candidate's city/province intersects the preferred
// set, otherwise zero. Only weighted by the eligibility vector.
func scoreLocation(req *models.Requisition, cand *models.Candidate) float64 {
	preferred := req.GetPreferredLocations()
	if len(preferred) == 0 {
		return 1.0
	}
	for _, location := range preferred {
		if location == cand.City || location == cand.Province {
			return 1.0
		}
	}
	return 0
}
