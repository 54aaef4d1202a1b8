package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"rekrut-portal/internal/models"
)

// SeedDatabase seeds the database with development data
func SeedDatabase(db *gorm.DB) error {
	log.Println("Starting database seeding...")

	if err := seedUsers(db); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	if err := seedAgents(db); err != nil {
		return fmt.Errorf("failed to seed agents: %w", err)
	}

	if err := seedCandidates(db); err != nil {
		return fmt.Errorf("failed to seed candidates: %w", err)
	}

	if err := seedRequisitions(db); err != nil {
		return fmt.Errorf("failed to seed requisitions: %w", err)
	}

	log.Println("Database seeding completed successfully!")
	return nil
}

func seedUsers(db *gorm.DB) error {
	log.Println("Seeding users...")

	users := []models.User{
		{
			Email:     "admin@rekrut-portal.id",
			Password:  "admin123",
			FirstName: "Dewi",
			LastName:  "Administrator",
			Phone:     "+62 21 5550001",
			Role:      models.RoleAdmin,
			IsActive:  true,
		},
		{
			Email:     "recruiter@rekrut-portal.id",
			Password:  "recruiter123",
			FirstName: "Budi",
			LastName:  "Santoso",
			Phone:     "+62 21 5550002",
			Role:      models.RoleRecruiter,
			IsActive:  true,
		},
		{
			Email:     "agent@rekrut-portal.id",
			Password:  "agent123",
			FirstName: "Siti",
			LastName:  "Rahayu",
			Phone:     "+62 21 5550003",
			Role:      models.RoleAgent,
			IsActive:  true,
		},
		{
			Email:     "candidate1@example.com",
			Password:  "candidate123",
			FirstName: "Agus",
			LastName:  "Wijaya",
			Phone:     "+62 812 1111111",
			Role:      models.RoleCandidate,
			IsActive:  true,
		},
		{
			Email:     "candidate2@example.com",
			Password:  "candidate123",
			FirstName: "Rina",
			LastName:  "Kusuma",
			Phone:     "+62 812 2222222",
			Role:      models.RoleCandidate,
			IsActive:  true,
		},
		{
			Email:     "candidate3@example.com",
			Password:  "candidate123",
			FirstName: "Joko",
			LastName:  "Prasetyo",
			Phone:     "+62 812 3333333",
			Role:      models.RoleCandidate,
			IsActive:  true,
		},
	}

	for i := range users {
		var existing models.User
		err := db.Where("email = ?", users[i].Email).First(&existing).Error
		if err == nil {
			continue
		}
		if err := db.Create(&users[i]).Error; err != nil {
			return err
		}
	}

	return nil
}

func seedAgents(db *gorm.DB) error {
	log.Println("Seeding agents...")

	var agentUser models.User
	if err := db.Where("email = ?", "agent@rekrut-portal.id").First(&agentUser).Error; err != nil {
		return err
	}

	var existing models.Agent
	if err := db.Where("user_id = ?", agentUser.ID).First(&existing).Error; err == nil {
		return nil
	}

	agent := models.Agent{
		UserID: agentUser.ID,
		Level:  models.AgentLevelSilver,
	}
	return db.Create(&agent).Error
}

func seedCandidates(db *gorm.DB) error {
	log.Println("Seeding candidates...")

	var agent models.Agent
	var referrer *models.Agent
	if err := db.First(&agent).Error; err == nil {
		referrer = &agent
	}

	birthDate := func(year, month, day int) *time.Time {
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		return &t
	}

	type seed struct {
		email     string
		candidate models.Candidate
		technical []string
		soft      []string
		referred  bool
	}

	seeds := []seed{
		{
			email: "candidate1@example.com",
			candidate: models.Candidate{
				BirthDate:        birthDate(1998, 3, 14),
				Gender:           models.GenderMale,
				EducationLevel:   models.EducationSMK,
				ExperienceMonths: 36,
				City:             "Bekasi",
				Province:         "Jawa Barat",
				Availability:     models.AvailabilityAvailable,
			},
			technical: []string{"welding", "forklift", "quality-control"},
			soft:      []string{"teamwork", "discipline"},
			referred:  true,
		},
		{
			email: "candidate2@example.com",
			candidate: models.Candidate{
				BirthDate:        birthDate(2000, 7, 2),
				Gender:           models.GenderFemale,
				EducationLevel:   models.EducationS1,
				ExperienceMonths: 18,
				City:             "Jakarta Selatan",
				Province:         "DKI Jakarta",
				Availability:     models.AvailabilityAvailable,
			},
			technical: []string{"accounting", "excel", "sap"},
			soft:      []string{"communication", "attention-to-detail"},
		},
		{
			email: "candidate3@example.com",
			candidate: models.Candidate{
				BirthDate:        birthDate(1995, 11, 23),
				Gender:           models.GenderMale,
				EducationLevel:   models.EducationD3,
				ExperienceMonths: 72,
				City:             "Karawang",
				Province:         "Jawa Barat",
				Availability:     models.AvailabilityAvailable,
			},
			technical: []string{"machine-operation", "maintenance", "quality-control"},
			soft:      []string{"leadership", "teamwork"},
			referred:  true,
		},
	}

	for _, s := range seeds {
		var user models.User
		if err := db.Where("email = ?", s.email).First(&user).Error; err != nil {
			continue
		}

		var existing models.Candidate
		if err := db.Where("user_id = ?", user.ID).First(&existing).Error; err == nil {
			continue
		}

		candidate := s.candidate
		candidate.UserID = user.ID
		if s.referred && referrer != nil {
			candidate.ReferredByAgentID = &referrer.ID
		}
		if err := candidate.SetTechnicalSkills(s.technical); err != nil {
			return err
		}
		if err := candidate.SetSoftSkills(s.soft); err != nil {
			return err
		}

		if err := db.Create(&candidate).Error; err != nil {
			return err
		}
	}

	return nil
}

func seedRequisitions(db *gorm.DB) error {
	log.Println("Seeding requisitions...")

	var recruiter models.User
	if err := db.Where("email = ?", "recruiter@rekrut-portal.id").First(&recruiter).Error; err != nil {
		return err
	}

	var count int64
	if err := db.Model(&models.Requisition{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	deadline := now.AddDate(0, 2, 0)
	minAge, maxAge := 18, 35

	requisitions := []struct {
		req       models.Requisition
		levels    []models.EducationLevel
		genders   []models.Gender
		required  []string
		preferred []string
		locations []string
	}{
		{
			req: models.Requisition{
				Title:               "Operator Produksi",
				Description:         "Operator produksi untuk pabrik komponen otomotif di Karawang.",
				Status:              models.RequisitionStatusPublished,
				MinAge:              &minAge,
				MaxAge:              &maxAge,
				MinExperienceMonths: 12,
				Salary:              5500000,
				TotalPositions:      10,
				ApplicationDeadline: &deadline,
				PublishedAt:         &now,
				CreatedBy:           recruiter.ID,
			},
			levels:    []models.EducationLevel{models.EducationSMA, models.EducationSMK},
			required:  []string{"machine-operation", "quality-control"},
			preferred: []string{"forklift"},
			locations: []string{"Jawa Barat"},
		},
		{
			req: models.Requisition{
				Title:               "Staff Akuntansi",
				Description:         "Staff akuntansi untuk kantor pusat Jakarta.",
				Status:              models.RequisitionStatusPublished,
				MinExperienceMonths: 12,
				Salary:              7000000,
				TotalPositions:      2,
				ApplicationDeadline: &deadline,
				PublishedAt:         &now,
				CreatedBy:           recruiter.ID,
			},
			levels:    []models.EducationLevel{models.EducationD3, models.EducationS1},
			required:  []string{"accounting", "excel"},
			preferred: []string{"sap"},
			locations: []string{"DKI Jakarta"},
		},
	}

	for _, r := range requisitions {
		requisition := r.req
		err := requisition.SetCriteria(r.levels, r.genders, r.required, r.preferred, r.locations)
		if err != nil {
			return err
		}
		if err := db.Create(&requisition).Error; err != nil {
			return err
		}
	}

	return nil
}
