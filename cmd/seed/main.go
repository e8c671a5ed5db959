// Seed loads the starter catalog (badges, rules, campaigns, admin user)
// into the database. Safe to re-run: every insert is an upsert.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"wanderhub/pkg/config"
	"wanderhub/pkg/database"
	"wanderhub/pkg/logger"
	"wanderhub/pkg/models"
)

type seedFile struct {
	Admin struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"admin"`
	Badges []struct {
		ID          string   `yaml:"id"`
		Name        string   `yaml:"name"`
		Description string   `yaml:"description"`
		Tier        string   `yaml:"tier"`
		IconURL     string   `yaml:"icon_url"`
		Benefits    []string `yaml:"benefits"`
	} `yaml:"badges"`
	Rules []struct {
		ID           string `yaml:"id"`
		Name         string `yaml:"name"`
		Description  string `yaml:"description"`
		TriggerEvent string `yaml:"trigger_event"`
		Type         string `yaml:"type"`
		Conditions   struct {
			MilestoneCount       int      `yaml:"milestone_count"`
			StreakDays           int      `yaml:"streak_days"`
			MaxCount             int      `yaml:"max_count"`
			ContentType          string   `yaml:"content_type"`
			Referrer             string   `yaml:"referrer"`
			RequiredContentTypes []string `yaml:"required_content_types"`
		} `yaml:"conditions"`
		Rewards struct {
			Points  int    `yaml:"points"`
			BadgeID string `yaml:"badge_id"`
		} `yaml:"rewards"`
	} `yaml:"rules"`
	Campaigns []struct {
		ID          string    `yaml:"id"`
		Name        string    `yaml:"name"`
		Description string    `yaml:"description"`
		RuleIDs     []string  `yaml:"rule_ids"`
		StartDate   time.Time `yaml:"start_date"`
		EndDate     time.Time `yaml:"end_date"`
	} `yaml:"campaigns"`
}

func main() {
	configPath := flag.String("config", "./configs/development.yaml", "path to config file")
	seedPath := flag.String("seed", "./scripts/seed.yaml", "path to seed data")
	schemaPath := flag.String("schema", "./scripts/schema.sql", "path to schema file (empty to skip)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output})

	raw, err := os.ReadFile(*seedPath)
	if err != nil {
		log.Fatalf("Failed to read seed file: %v", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		log.Fatalf("Failed to parse seed file: %v", err)
	}

	dbCfg := database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
		Timeout:  cfg.Database.Timeout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if *schemaPath != "" {
		db, err := database.NewDB(dbCfg)
		if err != nil {
			log.Fatalf("Failed to connect for schema apply: %v", err)
		}
		if err := db.ApplySchema(ctx, *schemaPath); err != nil {
			log.Fatalf("Failed to apply schema: %v", err)
		}
		db.Close()
		logger.Info("Schema applied")
	}

	pool, err := database.NewPGXPool(dbCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	for _, b := range seed.Badges {
		tier := b.Tier
		if tier == "" {
			tier = models.BadgeTierBronze
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO badges (id, name, description, tier, icon_url, benefits, requirements, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, '', true)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				tier = EXCLUDED.tier,
				icon_url = EXCLUDED.icon_url,
				benefits = EXCLUDED.benefits`,
			b.ID, b.Name, b.Description, tier, b.IconURL, b.Benefits,
		)
		if err != nil {
			log.Fatalf("Failed to seed badge %s: %v", b.ID, err)
		}
	}
	logger.Infof("Seeded %d badges", len(seed.Badges))

	for _, r := range seed.Rules {
		rule := models.Rule{
			ID:           r.ID,
			Name:         r.Name,
			Description:  r.Description,
			TriggerEvent: r.TriggerEvent,
			Type:         models.RuleType(r.Type),
			Conditions: models.RuleConditions{
				MilestoneCount:       r.Conditions.MilestoneCount,
				StreakDays:           r.Conditions.StreakDays,
				MaxCount:             r.Conditions.MaxCount,
				ContentType:          r.Conditions.ContentType,
				Referrer:             r.Conditions.Referrer,
				RequiredContentTypes: r.Conditions.RequiredContentTypes,
			},
			Rewards:  models.RuleRewards{Points: r.Rewards.Points, BadgeID: r.Rewards.BadgeID},
			IsActive: true,
		}
		if err := rule.Validate(); err != nil {
			log.Fatalf("Invalid seed rule %s: %v", r.ID, err)
		}
		conditions, err := json.Marshal(rule.Conditions)
		if err != nil {
			log.Fatalf("Failed to marshal conditions for %s: %v", r.ID, err)
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO reward_rules
				(id, name, description, trigger_event, type, conditions,
				 reward_points, reward_badge_id, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), true, now(), now())
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				trigger_event = EXCLUDED.trigger_event,
				type = EXCLUDED.type,
				conditions = EXCLUDED.conditions,
				reward_points = EXCLUDED.reward_points,
				reward_badge_id = EXCLUDED.reward_badge_id,
				updated_at = now()`,
			rule.ID, rule.Name, rule.Description, rule.TriggerEvent, string(rule.Type),
			conditions, rule.Rewards.Points, rule.Rewards.BadgeID,
		)
		if err != nil {
			log.Fatalf("Failed to seed rule %s: %v", r.ID, err)
		}
	}
	logger.Infof("Seeded %d rules", len(seed.Rules))

	for _, c := range seed.Campaigns {
		_, err := pool.Exec(ctx, `
			INSERT INTO campaigns (id, name, description, rule_ids, start_date, end_date, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, true, now(), now())
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				rule_ids = EXCLUDED.rule_ids,
				start_date = EXCLUDED.start_date,
				end_date = EXCLUDED.end_date,
				updated_at = now()`,
			c.ID, c.Name, c.Description, c.RuleIDs, c.StartDate, c.EndDate,
		)
		if err != nil {
			log.Fatalf("Failed to seed campaign %s: %v", c.ID, err)
		}
	}
	logger.Infof("Seeded %d campaigns", len(seed.Campaigns))

	if seed.Admin.Username != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Admin.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Failed to hash admin password: %v", err)
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO users (id, username, password_hash, role, created_at)
			VALUES ($1, $2, $3, 'admin', now())
			ON CONFLICT (username) DO UPDATE SET role = 'admin'`,
			uuid.New().String(), seed.Admin.Username, string(hash),
		)
		if err != nil {
			log.Fatalf("Failed to seed admin user: %v", err)
		}
		logger.Infof("Admin user %q ready", seed.Admin.Username)
	}

	fmt.Println("Seed complete.")
}
