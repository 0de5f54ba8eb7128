package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/comptoirlabs/comptoir-backend/pkg/migrate"
)

func TestStateMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_restaurant_states.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no restaurant_states migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS restaurant_states",
		"last_updated_at BIGINT NOT NULL DEFAULT 0",
		"CHECK (last_updated_at >= 0)",
		"DROP TABLE IF EXISTS restaurant_states",
	}
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Fatalf("migration missing %q", check)
		}
	}
}

func TestOutboxMigrationHasPartialUniqueIndex(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_outbox_events.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no outbox_events migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "ux_outbox_events_event_aggregate") {
		t.Fatalf("outbox migration missing dedup index")
	}
	if !strings.Contains(content, "WHERE published_at IS NULL") {
		t.Fatalf("dedup index must be partial on unpublished rows")
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
