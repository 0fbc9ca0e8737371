// Command seed inserts a demo org/run/doc set for local development, the
// same purpose original_source/apps/api/seed_data.py served for the system
// this was distilled from — minus the role/permission/admin-user seeding
// that script also did, since auth and RBAC are out of scope here.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/database"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/persistence"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	org := flag.String("org", "demo-org", "Org id to seed")
	user := flag.String("user", "demo-user", "Owning user id to seed as")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	}

	ctx := context.Background()

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("error closing database client: %v", err)
		}
	}()

	store := persistence.NewStore(dbClient.DB())

	log.Printf("seeding demo data for org %q", *org)

	if err := seed(ctx, store, *org, *user); err != nil {
		log.Fatalf("seed FAILED: %v", err)
	}

	log.Println("seed data applied successfully!")
	log.Printf("  - org: %s", *org)
	log.Printf("  - 2 context docs (1 databricks, 1 config_apis)")
	log.Printf("  - 1 chat conversation")
}

// seed mirrors seed_data.py's shape (idempotent-ish bootstrap of a handful
// of rows so a fresh local environment has something to look at) but seeds
// this domain's data instead of roles/permissions/an admin user: a
// completed run per pipeline, one context doc each, and a starter chat
// conversation.
func seed(ctx context.Context, store *persistence.Store, org, user string) error {
	now := time.Now().UTC()

	extractionRunID := uuid.New().String()
	extractionRun := &models.ExtractionRun{
		ID:         extractionRunID,
		OwningUser: user,
		OwningOrg:  org,
		Workspace:  "demo-cluster",
		Counters:   models.ExtractionCounters{Discovered: 12, Processed: 12, Extracted: 9, Valid: 9},
		Status:     models.RunStatusRunning,
		StartedAt:  now,
	}
	if err := store.CreateExtractionRun(ctx, extractionRun); err != nil {
		return err
	}
	if err := store.CompleteExtractionRun(ctx, extractionRunID, models.RunStatusCompleted, extractionRun.Counters, nil, ""); err != nil {
		return err
	}

	configRunID := uuid.New().String()
	configRun := &models.ConfigExtractionRun{
		ID:         configRunID,
		OwningUser: user,
		OwningOrg:  org,
		Host:       "https://demo.example.com",
		Counters:   models.ExtractionCounters{Discovered: 40, Processed: 40, Extracted: 40},
		Status:     models.RunStatusRunning,
		StartedAt:  now,
	}
	if err := store.CreateConfigExtractionRun(ctx, configRun); err != nil {
		return err
	}
	if err := store.CompleteConfigExtractionRun(ctx, configRunID, models.RunStatusCompleted, configRun.Counters, ""); err != nil {
		return err
	}

	sqlDoc := &models.ContextDoc{
		ID:          uuid.New().String(),
		SourceType:  models.SourceDatabricks,
		SourceRunID: extractionRunID,
		OrgID:       org,
		DocKey:      "01_MASTER",
		DocName:     "SQL Corpus Master Overview",
		DocContent:  "# SQL Corpus Master Overview\n\nThis is placeholder demo content seeded for local development. Run the SQL Corpus Pipeline against a real workspace to replace it.\n",
		Model:       "demo",
		Provider:    "demo",
		Status:      models.DocStatusActive,
		CreatedAt:   now,
	}
	if err := store.CreateContextDoc(ctx, sqlDoc); err != nil {
		return err
	}

	configDoc := &models.ContextDoc{
		ID:          uuid.New().String(),
		SourceType:  models.SourceConfigAPIs,
		SourceRunID: configRunID,
		OrgID:       org,
		DocKey:      "loyalty",
		DocName:     "Loyalty Configuration Overview",
		DocContent:  "# Loyalty Configuration Overview\n\nThis is placeholder demo content seeded for local development. Run the Configuration Object Pipeline against a real deployment to replace it.\n",
		Model:       "demo",
		Provider:    "demo",
		Status:      models.DocStatusActive,
		CreatedAt:   now,
	}
	if err := store.CreateContextDoc(ctx, configDoc); err != nil {
		return err
	}

	conversationID := uuid.New().String()
	if err := store.CreateConversation(ctx, &models.ChatConversation{
		ID: conversationID, OwningUser: user, OwningOrg: org, CreatedAt: now,
	}); err != nil {
		return err
	}
	if err := store.AppendMessages(ctx, conversationID, []models.ChatMessage{
		{
			ID:             uuid.New().String(),
			ConversationID: conversationID,
			Role:           models.ChatRoleUser,
			Content:        "What do we know about loyalty configuration?",
			CreatedAt:      now,
		},
	}); err != nil {
		return err
	}

	return nil
}
