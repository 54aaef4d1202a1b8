package matching

import (
	"sort"
	"time"

	"rekrut-portal/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CandidateMatch pairs a candidate with its score for a requisition.
type CandidateMatch struct {
	Candidate models.Candidate `json:"candidate"`
	Result    Result           `json:"result"`
}

// RequisitionMatch pairs a requisition with its score for a candidate.
type RequisitionMatch struct {
	Requisition models.Requisition `json:"requisition"`
	Result      Result             `json:"result"`
}

// Search runs bidirectional matching queries. Hard pre-filters run in SQL
// to bound the scored pool; scoring itself stays in the engines. The two
// directions weigh dimensions differently: forward search scores with the
// configured requisition-side vector, reverse search with the candidate
// eligibility vector, which weighs location.
type Search struct {
	db      *gorm.DB
	forward *Engine
	reverse *Engine
	logger  *zap.Logger
	now     func() time.Time
}

// NewSearch creates a search service on top of the forward scoring engine.
// The reverse engine is built from the fixed eligibility vector.
func NewSearch(db *gorm.DB, forward *Engine, logger *zap.Logger) *Search {
	return &Search{
		db:      db,
		forward: forward,
		reverse: &Engine{weights: EligibilityWeights(), now: time.Now},
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the search clock, for deterministic tests. The engine
// clocks are replaced alongside so age scoring agrees with the filters.
func (s *Search) WithClock(now func() time.Time) *Search {
	s.now = now
	s.forward.WithClock(now)
	s.reverse.WithClock(now)
	return s
}

// FindCandidates returns the best-scoring available candidates for a
// requisition, ordered by score descending with candidate id ascending as
// the tie-break. Candidates who already applied are excluded, as are those
// failing the hard criteria (education set, age range, minimum experience).
func (s *Search) FindCandidates(req *models.Requisition, limit int) ([]CandidateMatch, error) {
	now := s.now()

	query := s.db.Model(&models.Candidate{}).
		Where("availability = ?", models.AvailabilityAvailable).
		Where("experience_months >= ?", req.MinExperienceMonths).
		Where("id NOT IN (?)", s.db.Model(&models.Application{}).
			Select("candidate_id").
			Where("requisition_id = ?", req.ID))

	// Age bounds translate to birth date ranges; candidates without a birth
	// date pass the pre-filter and score the documented default instead.
	if req.MaxAge != nil {
		earliest := now.AddDate(-(*req.MaxAge + 1), 0, 0)
		query = query.Where("birth_date IS NULL OR birth_date > ?", earliest)
	}
	if req.MinAge != nil {
		latest := now.AddDate(-*req.MinAge, 0, 0)
		query = query.Where("birth_date IS NULL OR birth_date <= ?", latest)
	}

	var candidates []models.Candidate
	if err := query.Find(&candidates).Error; err != nil {
		return nil, err
	}

	// Education set membership lives in a JSON column, filtered here.
	requiredLevels := req.GetRequiredEducationLevels()
	matches := make([]CandidateMatch, 0, len(candidates))
	for i := range candidates {
		cand := candidates[i]
		if !educationAllowed(requiredLevels, cand.EducationLevel) {
			continue
		}
		matches = append(matches, CandidateMatch{
			Candidate: cand,
			Result:    s.forward.Score(req, &cand),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Result.Score != matches[j].Result.Score {
			return matches[i].Result.Score > matches[j].Result.Score
		}
		return matches[i].Candidate.ID.String() < matches[j].Candidate.ID.String()
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	s.logger.Debug("forward candidate search completed",
		zap.String("requisition_id", req.ID.String()),
		zap.Int("pool", len(candidates)),
		zap.Int("matches", len(matches)))

	return matches, nil
}

// FindRequisitions returns the best-scoring open requisitions for a
// candidate, restricted to published postings whose deadline has not
// passed, ordered by score descending with requisition id as tie-break.
func (s *Search) FindRequisitions(cand *models.Candidate, limit int) ([]RequisitionMatch, error) {
	now := s.now()

	var requisitions []models.Requisition
	if err := s.db.Model(&models.Requisition{}).
		Where("status = ?", models.RequisitionStatusPublished).
		Where("application_deadline IS NULL OR application_deadline >= ?", now).
		Where("hired_count < total_positions").
		Find(&requisitions).Error; err != nil {
		return nil, err
	}

	matches := make([]RequisitionMatch, 0, len(requisitions))
	for i := range requisitions {
		req := requisitions[i]
		matches = append(matches, RequisitionMatch{
			Requisition: req,
			Result:      s.reverse.Score(&req, cand),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Result.Score != matches[j].Result.Score {
			return matches[i].Result.Score > matches[j].Result.Score
		}
		return matches[i].Requisition.ID.String() < matches[j].Requisition.ID.String()
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	s.logger.Debug("reverse requisition search completed",
		zap.String("candidate_id", cand.ID.String()),
		zap.Int("pool", len(requisitions)),
		zap.Int("matches", len(matches)))

	return matches, nil
}

// educationAllowed is the hard education pre-filter: an empty required set
// allows everyone, otherwise the candidate's level must be in the set or at
// least reach the lowest required rank.
func educationAllowed(required []models.EducationLevel, level models.EducationLevel) bool {
	if len(required) == 0 {
		return true
	}
	lowest := 0
	for _, r := range required {
		if r == level {
			return true
		}
		if rank := r.Rank(); lowest == 0 || rank < lowest {
			lowest = rank
		}
	}
	return level.Rank() >= lowest
}
