package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rmagedov/p2pdesk-backend/pkg/migrate"
)

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestRestTimerMigrationEnforcesSingleActiveRow(t *testing.T) {
	content := readMigration(t, "*_create_rest_timers.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS rest_timers",
		"CREATE UNIQUE INDEX IF NOT EXISTS rest_timers_single_active",
		"WHERE is_active = TRUE",
		"DROP TABLE IF EXISTS rest_timers",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOperatorsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_operators.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS operators",
		"CONSTRAINT operators_email_unique UNIQUE (email)",
		"CHECK (active_order_count >= 0)",
		"DROP TABLE IF EXISTS operators",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestAssignmentConfigMigrationSeedsSingleton(t *testing.T) {
	content := readMigration(t, "*_create_auto_assignment_configs.sql")

	if !strings.Contains(content, "INSERT INTO auto_assignment_configs (is_enabled) VALUES (FALSE)") {
		t.Error("missing singleton seed row")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected exactly one migration matching %q, got %d", pattern, len(matches))
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
