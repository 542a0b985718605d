package database

import (
	"strings"
	"testing"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups := listMigrationFiles(migrationsFS, migrationsDir)
	if len(ups) == 0 {
		t.Fatal("expected embedded up migrations")
	}
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := migrationsFS.Open(migrationsDir + "/" + down); err != nil {
			t.Fatalf("missing down migration for %s: %v", up, err)
		}
		if parseVersion(up) == 0 {
			t.Fatalf("migration %s has no numeric version", up)
		}
	}
}

func TestSelectApplied(t *testing.T) {
	files := []string{"000001_a.up.sql", "000002_b.up.sql", "000003_c.up.sql"}
	got := selectApplied(files, 1, 3)
	if len(got) != 2 || got[0] != "000002_b.up.sql" || got[1] != "000003_c.up.sql" {
		t.Fatalf("selectApplied = %v", got)
	}
	if got := selectApplied(files, 3, 3); got != nil {
		t.Fatalf("expected nothing applied, got %v", got)
	}
}
