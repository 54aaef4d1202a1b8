package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func TestUserModel_HashPassword(t *testing.T) {
	user := &User{}

	t.Run("hashes_valid_password", func(t *testing.T) {
		user.Password = "testpassword123"
		err := user.HashPassword()

		assert.NoError(t, err)
		assert.NotEqual(t, "testpassword123", user.Password)

		err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("testpassword123"))
		assert.NoError(t, err)
	})
}

func TestUserModel_CheckPassword(t *testing.T) {
	user := &User{Password: "plainpassword"}
	user.HashPassword()

	t.Run("correct_password", func(t *testing.T) {
		assert.True(t, user.CheckPassword("plainpassword"))
	})

	t.Run("incorrect_password", func(t *testing.T) {
		assert.False(t, user.CheckPassword("wrongpassword"))
	})

	t.Run("empty_password", func(t *testing.T) {
		assert.False(t, user.CheckPassword(""))
	})
}

func TestUserModel_RoleChecks(t *testing.T) {
	tests := []struct {
		name        string
		role        UserRole
		isAdmin     bool
		isRecruiter bool
		isAgent     bool
		isCandidate bool
	}{
		{"admin_user", RoleAdmin, true, false, false, false},
		{"recruiter_user", RoleRecruiter, false, true, false, false},
		{"agent_user", RoleAgent, false, false, true, false},
		{"candidate_user", RoleCandidate, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &User{Role: tt.role}
			assert.Equal(t, tt.isAdmin, user.IsAdmin())
			assert.Equal(t, tt.isRecruiter, user.IsRecruiter())
			assert.Equal(t, tt.isAgent, user.IsAgent())
			assert.Equal(t, tt.isCandidate, user.IsCandidate())
		})
	}
}

func TestStage_Next(t *testing.T) {
	tests := []struct {
		name     string
		stage    Stage
		expected Stage
		ok       bool
	}{
		{"applied_to_screening", StageApplied, StageScreening, true},
		{"screening_to_psychometric", StageScreening, StagePsychometric, true},
		{"psychometric_to_interview", StagePsychometric, StageInterview, true},
		{"interview_to_medical", StageInterview, StageMedical, true},
		{"medical_to_final_review", StageMedical, StageFinalReview, true},
		{"final_review_to_accepted", StageFinalReview, StageAccepted, true},
		{"accepted_is_last", StageAccepted, "", false},
		{"rejected_off_path", StageRejected, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := tt.stage.Next()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, next)
		})
	}
}

func TestStage_HasResultGate(t *testing.T) {
	assert.False(t, StageApplied.HasResultGate())
	assert.True(t, StageScreening.HasResultGate())
	assert.True(t, StagePsychometric.HasResultGate())
	assert.True(t, StageInterview.HasResultGate())
	assert.True(t, StageMedical.HasResultGate())
	assert.True(t, StageFinalReview.HasResultGate())
	assert.False(t, StageAccepted.HasResultGate())
	assert.False(t, StageRejected.HasResultGate())
}

func TestApplication_CanAdvance(t *testing.T) {
	t.Run("applied_advances_without_result", func(t *testing.T) {
		app := &Application{CurrentStage: StageApplied, Status: ApplicationStatusActive}
		assert.True(t, app.CanAdvance())
	})

	t.Run("gated_stage_blocks_without_pass", func(t *testing.T) {
		app := &Application{CurrentStage: StageScreening, Status: ApplicationStatusActive}
		assert.False(t, app.CanAdvance())
	})

	t.Run("gated_stage_blocks_on_fail", func(t *testing.T) {
		app := &Application{CurrentStage: StageScreening, Status: ApplicationStatusActive}
		app.SetStageRecords(map[Stage]StageRecord{
			StageScreening: {Result: StageResultFail},
		})
		assert.False(t, app.CanAdvance())
	})

	t.Run("gated_stage_advances_on_pass", func(t *testing.T) {
		app := &Application{CurrentStage: StageInterview, Status: ApplicationStatusActive}
		app.SetStageRecords(map[Stage]StageRecord{
			StageInterview: {Result: StageResultPass},
		})
		assert.True(t, app.CanAdvance())
	})

	t.Run("terminal_status_blocks", func(t *testing.T) {
		app := &Application{CurrentStage: StageScreening, Status: ApplicationStatusWithdrawn}
		assert.False(t, app.CanAdvance())
	})

	t.Run("rejected_stage_blocks", func(t *testing.T) {
		app := &Application{CurrentStage: StageRejected, Status: ApplicationStatusRejected}
		assert.False(t, app.CanAdvance())
	})
}

func TestApplication_StageRecords(t *testing.T) {
	app := &Application{}

	t.Run("empty_returns_empty_map", func(t *testing.T) {
		assert.Empty(t, app.GetStageRecords())
	})

	t.Run("round_trip", func(t *testing.T) {
		scheduled := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
		err := app.SetStageRecords(map[Stage]StageRecord{
			StageApplied:   {Result: StageResultPass},
			StageScreening: {Result: StageResultPending, ScheduledAt: &scheduled},
		})
		assert.NoError(t, err)

		records := app.GetStageRecords()
		assert.Len(t, records, 2)
		assert.Equal(t, StageResultPass, records[StageApplied].Result)
		assert.Equal(t, StageResultPending, records[StageScreening].Result)
		assert.NotNil(t, records[StageScreening].ScheduledAt)
	})

	t.Run("unknown_stage_defaults_to_pending", func(t *testing.T) {
		record := app.StageRecordFor(StageMedical)
		assert.Equal(t, StageResultPending, record.Result)
	})
}

func TestEducationLevel_Rank(t *testing.T) {
	assert.Equal(t, 1, EducationSD.Rank())
	assert.Equal(t, 2, EducationSMP.Rank())
	assert.Equal(t, 3, EducationSMA.Rank())
	assert.Equal(t, 3, EducationSMK.Rank())
	assert.Equal(t, 4, EducationD3.Rank())
	assert.Equal(t, 5, EducationS1.Rank())
	assert.Equal(t, 6, EducationS2.Rank())
	assert.Equal(t, 0, EducationLevel("unknown").Rank())
}

func TestCandidate_AgeAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("nil_birth_date", func(t *testing.T) {
		c := &Candidate{}
		assert.Nil(t, c.AgeAt(now))
	})

	t.Run("birthday_passed", func(t *testing.T) {
		birth := time.Date(2000, 3, 1, 0, 0, 0, 0, time.UTC)
		c := &Candidate{BirthDate: &birth}
		age := c.AgeAt(now)
		assert.NotNil(t, age)
		assert.Equal(t, 25, *age)
	})

	t.Run("birthday_not_yet", func(t *testing.T) {
		birth := time.Date(2000, 11, 1, 0, 0, 0, 0, time.UTC)
		c := &Candidate{BirthDate: &birth}
		age := c.AgeAt(now)
		assert.NotNil(t, age)
		assert.Equal(t, 24, *age)
	})
}

func TestRequisition_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     RequisitionStatus
		to       RequisitionStatus
		expected bool
	}{
		{"draft_to_published", RequisitionStatusDraft, RequisitionStatusPublished, true},
		{"draft_to_cancelled", RequisitionStatusDraft, RequisitionStatusCancelled, true},
		{"draft_to_closed", RequisitionStatusDraft, RequisitionStatusClosed, false},
		{"published_to_paused", RequisitionStatusPublished, RequisitionStatusPaused, true},
		{"published_to_closed", RequisitionStatusPublished, RequisitionStatusClosed, true},
		{"paused_to_published", RequisitionStatusPaused, RequisitionStatusPublished, true},
		{"closed_is_terminal", RequisitionStatusClosed, RequisitionStatusPublished, false},
		{"cancelled_is_terminal", RequisitionStatusCancelled, RequisitionStatusDraft, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Requisition{Status: tt.from}
			assert.Equal(t, tt.expected, r.CanTransitionTo(tt.to))
		})
	}
}

func TestRequisition_IsAcceptingAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("published_accepts", func(t *testing.T) {
		r := &Requisition{Status: RequisitionStatusPublished, TotalPositions: 5}
		assert.True(t, r.IsAcceptingAt(now))
	})

	t.Run("draft_does_not_accept", func(t *testing.T) {
		r := &Requisition{Status: RequisitionStatusDraft, TotalPositions: 5}
		assert.False(t, r.IsAcceptingAt(now))
	})

	t.Run("past_deadline_does_not_accept", func(t *testing.T) {
		deadline := now.Add(-time.Hour)
		r := &Requisition{
			Status:              RequisitionStatusPublished,
			TotalPositions:      5,
			ApplicationDeadline: &deadline,
		}
		assert.False(t, r.IsAcceptingAt(now))
	})

	t.Run("future_deadline_accepts", func(t *testing.T) {
		deadline := now.Add(time.Hour)
		r := &Requisition{
			Status:              RequisitionStatusPublished,
			TotalPositions:      5,
			ApplicationDeadline: &deadline,
		}
		assert.True(t, r.IsAcceptingAt(now))
	})

	t.Run("filled_quota_does_not_accept", func(t *testing.T) {
		r := &Requisition{Status: RequisitionStatusPublished, TotalPositions: 3, HiredCount: 3}
		assert.False(t, r.IsAcceptingAt(now))
	})
}

func TestRequisition_Criteria(t *testing.T) {
	r := &Requisition{}
	err := r.SetCriteria(
		[]EducationLevel{EducationSMA, EducationSMK},
		[]Gender{GenderMale},
		[]string{"welding", "forklift"},
		[]string{"quality-control"},
		[]string{"Jawa Barat"},
	)
	assert.NoError(t, err)

	assert.Equal(t, []EducationLevel{EducationSMA, EducationSMK}, r.GetRequiredEducationLevels())
	assert.Equal(t, []Gender{GenderMale}, r.GetPreferredGenders())
	assert.Equal(t, []string{"welding", "forklift"}, r.GetRequiredSkills())
	assert.Equal(t, []string{"quality-control"}, r.GetPreferredSkills())
	assert.Equal(t, []string{"Jawa Barat"}, r.GetPreferredLocations())
}

func TestPlacement_DaysUntilExpiryAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("thirty_days_left", func(t *testing.T) {
		p := &Placement{EndDate: now.AddDate(0, 0, 30)}
		assert.Equal(t, 30, p.DaysUntilExpiryAt(now))
	})

	t.Run("past_end_reports_zero", func(t *testing.T) {
		p := &Placement{EndDate: now.AddDate(0, 0, -5)}
		assert.Equal(t, 0, p.DaysUntilExpiryAt(now))
	})
}

func TestPlacement_CompletionPercentageAt(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 100)
	p := &Placement{StartDate: start, EndDate: end}

	t.Run("halfway", func(t *testing.T) {
		assert.InDelta(t, 50.0, p.CompletionPercentageAt(start.AddDate(0, 0, 50)), 0.01)
	})

	t.Run("before_start_is_zero", func(t *testing.T) {
		assert.Equal(t, 0.0, p.CompletionPercentageAt(start.AddDate(0, 0, -1)))
	})

	t.Run("past_end_caps_at_hundred", func(t *testing.T) {
		assert.Equal(t, 100.0, p.CompletionPercentageAt(end.AddDate(0, 0, 10)))
	})

	t.Run("zero_length_contract", func(t *testing.T) {
		degenerate := &Placement{StartDate: start, EndDate: start}
		assert.Equal(t, 0.0, degenerate.CompletionPercentageAt(start))
	})
}

func TestPlacement_AlertFlags(t *testing.T) {
	p := &Placement{}

	assert.False(t, p.AlertSentFor(30))
	assert.False(t, p.AlertSentFor(14))
	assert.False(t, p.AlertSentFor(7))

	p.MarkAlertSent(14)
	assert.False(t, p.AlertSentFor(30))
	assert.True(t, p.AlertSentFor(14))
	assert.False(t, p.AlertSentFor(7))

	p.MarkAlertSent(30)
	p.MarkAlertSent(7)
	assert.True(t, p.AlertSentFor(30))
	assert.True(t, p.AlertSentFor(7))

	assert.False(t, p.AlertSentFor(99))
}

func TestPlacement_IsClosed(t *testing.T) {
	assert.False(t, (&Placement{Status: PlacementStatusPendingStart}).IsClosed())
	assert.False(t, (&Placement{Status: PlacementStatusActive}).IsClosed())
	assert.False(t, (&Placement{Status: PlacementStatusOnHold}).IsClosed())
	assert.True(t, (&Placement{Status: PlacementStatusCompleted}).IsClosed())
	assert.True(t, (&Placement{Status: PlacementStatusTerminated}).IsClosed())
	assert.True(t, (&Placement{Status: PlacementStatusExpired}).IsClosed())
}

func TestAgentLevel_CommissionRate(t *testing.T) {
	assert.Equal(t, 0.05, AgentLevelBronze.CommissionRate())
	assert.Equal(t, 0.075, AgentLevelSilver.CommissionRate())
	assert.Equal(t, 0.10, AgentLevelGold.CommissionRate())
	assert.Equal(t, 0.05, AgentLevel("unknown").CommissionRate())
}

func TestAgent_CreditCommission(t *testing.T) {
	agent := &Agent{TotalPlacements: 2, TotalCommission: 1000, UnsettledCommission: 300}
	agent.CreditCommission(450)

	assert.Equal(t, 3, agent.TotalPlacements)
	assert.Equal(t, 1450.0, agent.TotalCommission)
	assert.Equal(t, 750.0, agent.UnsettledCommission)
}

func TestNotification_MarkAttemptFailed(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	backoff := []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second}

	t.Run("first_failure_schedules_retry", func(t *testing.T) {
		n := &Notification{Status: NotificationStatusPending, MaxRetries: 3}
		n.MarkAttemptFailed(now, "smtp timeout", backoff)

		assert.Equal(t, NotificationStatusRetrying, n.Status)
		assert.Equal(t, 1, n.RetryCount)
		assert.Equal(t, "smtp timeout", n.ErrorMessage)
		assert.NotNil(t, n.NextRetryAt)
		assert.Equal(t, now.Add(10*time.Second), *n.NextRetryAt)
	})

	t.Run("backoff_schedule_advances", func(t *testing.T) {
		n := &Notification{Status: NotificationStatusRetrying, MaxRetries: 3, RetryCount: 1}
		n.MarkAttemptFailed(now, "smtp timeout", backoff)

		assert.Equal(t, 2, n.RetryCount)
		assert.Equal(t, now.Add(30*time.Second), *n.NextRetryAt)
	})

	t.Run("exhausted_attempts_fail_terminally", func(t *testing.T) {
		n := &Notification{Status: NotificationStatusRetrying, MaxRetries: 3, RetryCount: 2}
		n.MarkAttemptFailed(now, "mailbox unavailable", backoff)

		assert.Equal(t, NotificationStatusFailed, n.Status)
		assert.Equal(t, 3, n.RetryCount)
		assert.NotNil(t, n.FailedAt)
		assert.Nil(t, n.NextRetryAt)
	})
}

func TestNotification_IsDue(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("pending_without_schedule", func(t *testing.T) {
		n := &Notification{Status: NotificationStatusPending}
		assert.True(t, n.IsDue(now))
	})

	t.Run("retrying_before_next_retry", func(t *testing.T) {
		next := now.Add(time.Minute)
		n := &Notification{Status: NotificationStatusRetrying, NextRetryAt: &next}
		assert.False(t, n.IsDue(now))
	})

	t.Run("retrying_at_next_retry", func(t *testing.T) {
		next := now
		n := &Notification{Status: NotificationStatusRetrying, NextRetryAt: &next}
		assert.True(t, n.IsDue(now))
	})

	t.Run("sent_never_due", func(t *testing.T) {
		n := &Notification{Status: NotificationStatusSent}
		assert.False(t, n.IsDue(now))
	})
}
