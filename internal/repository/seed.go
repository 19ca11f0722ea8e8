package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/blockedby/kandra/internal/logger"
	"github.com/blockedby/kandra/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Demo credentials created by Seed.
const (
	DemoCandidateEmail = "candidate@kandra.dev"
	DemoCompanyEmail   = "hiring@atlas.example"
	DemoPassword       = "kandra-demo"
)

type seedCompany struct {
	email string
	name  string
}

var seedCompanies = []seedCompany{
	{DemoCompanyEmail, "Atlas Studio"},
	{"jobs@nordlys.example", "Nordlys Labs"},
	{"rh@maisonverte.example", "Maison Verte"},
}

type seedJob struct {
	title     string
	category  string
	location  string
	kind      models.OfferKind
	level     models.ExperienceLevel
	salary    models.Salary
	skills    []string
	proposals int
}

func kf(v float64) *float64 { return &v }

var seedJobs = []seedJob{
	{"Backend Go Engineer", "engineering", "Paris", models.OfferFullTime, models.LevelIntermediate, models.Salary{Min: kf(55), Max: kf(70)}, []string{"go", "postgres"}, 12},
	{"Frontend Developer", "engineering", "Lyon", models.OfferFullTime, models.LevelEntry, models.Salary{Min: kf(38), Max: kf(45)}, []string{"react", "typescript"}, 31},
	{"Data Analyst Intern", "data", "Remote", models.OfferInternship, models.LevelEntry, models.Salary{Text: "1200€/month"}, []string{"sql", "python"}, 3},
	{"Product Designer", "design", "Nantes", models.OfferFullTime, models.LevelExpert, models.Salary{Min: kf(60), Max: kf(75)}, []string{"figma"}, 8},
	{"Freelance Mobile Developer", "engineering", "Remote", models.OfferFreelance, models.LevelExpert, models.Salary{Text: "45€/h"}, []string{"flutter", "kotlin"}, 17},
	{"Community Volunteer", "community", "Marseille", models.OfferVolunteer, models.LevelEntry, models.Salary{Text: "Unpaid"}, nil, 1},
	{"DevOps Engineer", "engineering", "Paris", models.OfferFullTime, models.LevelExpert, models.Salary{Min: kf(70), Max: kf(90)}, []string{"kubernetes", "terraform"}, 54},
	{"Marketing Assistant", "marketing", "Bordeaux", models.OfferInternship, models.LevelEntry, models.Salary{Min: kf(18), Max: kf(22)}, []string{"seo"}, 22},
	{"Machine Learning Engineer", "data", "Remote", models.OfferFullTime, models.LevelExpert, models.Salary{Min: kf(80), Max: kf(110)}, []string{"python", "pytorch"}, 9},
	{"Technical Writer", "content", "Remote", models.OfferFreelance, models.LevelIntermediate, models.Salary{Text: "30 per hour"}, []string{"markdown"}, 4},
	{"QA Engineer", "engineering", "Lille", models.OfferFullTime, models.LevelIntermediate, models.Salary{Min: kf(42), Max: kf(50)}, []string{"cypress"}, 15},
	{"Customer Success Manager", "sales", "Paris", models.OfferFullTime, models.LevelIntermediate, models.Salary{Min: kf(40), Max: kf(48)}, nil, 27},
	{"UX Research Intern", "design", "Toulouse", models.OfferInternship, models.LevelEntry, models.Salary{Min: kf(15), Max: kf(15)}, []string{"interviews"}, 6},
	{"Site Reliability Engineer", "engineering", "Remote", models.OfferFreelance, models.LevelExpert, models.Salary{Min: kf(500), Max: kf(700)}, []string{"go", "prometheus"}, 2},
	{"Event Volunteer", "community", "Lyon", models.OfferVolunteer, models.LevelEntry, models.Salary{}, nil, 0},
	{"Sales Development Representative", "sales", "Bordeaux", models.OfferFullTime, models.LevelEntry, models.Salary{Min: kf(32), Max: kf(40)}, []string{"crm"}, 41},
	{"Security Consultant", "engineering", "Paris", models.OfferFreelance, models.LevelExpert, models.Salary{Text: "600€ per day"}, []string{"pentest"}, 11},
	{"Brand Designer", "design", "Remote", models.OfferFreelance, models.LevelIntermediate, models.Salary{Min: kf(35), Max: kf(55)}, []string{"illustrator"}, 19},
}

// Seed inserts demo accounts and postings into an empty database. It is a
// no-op when any account already exists.
func Seed(ctx context.Context, db *gorm.DB, log *logger.Logger) error {
	log = logger.OrGet(log)
	users := NewUsersRepository(db)

	n, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		log.Debug().Int64("users", n).Msg("database already seeded")
		return nil
	}

	if _, err := users.Create(ctx, DemoCandidateEmail, DemoPassword, "Demo Candidate", models.RoleCandidate); err != nil {
		return fmt.Errorf("seed candidate: %w", err)
	}

	companies := make([]*models.User, 0, len(seedCompanies))
	for _, c := range seedCompanies {
		u, err := users.Create(ctx, c.email, DemoPassword, c.name, models.RoleCompany)
		if err != nil {
			return fmt.Errorf("seed company %s: %w", c.name, err)
		}
		companies = append(companies, u)
	}

	base := time.Now().UTC().Add(-time.Duration(len(seedJobs)) * time.Hour)
	rows := make([]JobRow, 0, len(seedJobs))
	for i, j := range seedJobs {
		company := companies[i%len(companies)]
		created := base.Add(time.Duration(i) * time.Hour)
		rows = append(rows, JobRow{
			ID:              uuid.NewString(),
			CompanyID:       company.ID.String(),
			Company:         company.Name,
			Title:           j.title,
			Description:     fmt.Sprintf("%s at %s. Join a small team shipping real products.", j.title, company.Name),
			Location:        j.location,
			Category:        j.category,
			Kind:            string(j.kind),
			ExperienceLevel: string(j.level),
			SalaryText:      j.salary.Text,
			SalaryMin:       j.salary.Min,
			SalaryMax:       j.salary.Max,
			Skills:          joinSkills(j.skills),
			Proposals:       j.proposals,
			Status:          string(models.JobStatusPublished),
			PublishedAt:     &created,
			CreatedAt:       created,
			UpdatedAt:       created,
		})
	}

	if err := db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("seed jobs: %w", err)
	}

	log.Info().
		Int("companies", len(companies)).
		Int("jobs", len(rows)).
		Msg("seeded development fixtures")
	return nil
}
