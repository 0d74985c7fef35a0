package db

import (
	"path/filepath"
	"testing"
	"testing/fstest"
)

func openBareDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		t.Fatalf("Failed to query sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrateUpDown(t *testing.T) {
	db := openBareDB(t)
	fsys := MigrationsFS()

	version, dirty, err := db.MigrateVersion(fsys)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("fresh database version = %d dirty=%v, want 0 false", version, dirty)
	}

	if err := db.MigrateUp(fsys); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if !tableExists(t, db, "dna_outcomes") {
		t.Fatal("Expected dna_outcomes after MigrateUp")
	}
	// Running again is a no-op.
	if err := db.MigrateUp(fsys); err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}

	latest, err := LatestMigrationVersion(fsys)
	if err != nil {
		t.Fatalf("LatestMigrationVersion failed: %v", err)
	}
	version, _, err = db.MigrateVersion(fsys)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != latest {
		t.Errorf("version after up = %d, want %d", version, latest)
	}

	if err := db.MigrateDown(fsys); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	version, _, err = db.MigrateVersion(fsys)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != latest-1 {
		t.Errorf("version after down = %d, want %d", version, latest-1)
	}
}

func TestMigrateToAndForce(t *testing.T) {
	db := openBareDB(t)
	fsys := MigrationsFS()

	if err := db.MigrateTo(fsys, 1); err != nil {
		t.Fatalf("MigrateTo(1) failed: %v", err)
	}
	status, err := db.GetMigrationStatus(fsys)
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if status.CurrentVersion != 1 || status.Pending != status.LatestVersion-1 {
		t.Errorf("unexpected status: %+v", status)
	}

	if err := db.MigrateForce(fsys, 2); err != nil {
		t.Fatalf("MigrateForce failed: %v", err)
	}
	version, dirty, err := db.MigrateVersion(fsys)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("forced version = %d dirty=%v, want 2 false", version, dirty)
	}
}

func TestLatestMigrationVersion(t *testing.T) {
	tests := []struct {
		name    string
		fsys    fstest.MapFS
		want    uint
		wantErr bool
	}{
		{
			name: "highest wins",
			fsys: fstest.MapFS{
				"000001_a.up.sql":   {Data: []byte("SELECT 1;")},
				"000001_a.down.sql": {Data: []byte("SELECT 1;")},
				"000007_b.up.sql":   {Data: []byte("SELECT 1;")},
				"000003_c.up.sql":   {Data: []byte("SELECT 1;")},
			},
			want: 7,
		},
		{
			name:    "empty",
			fsys:    fstest.MapFS{},
			wantErr: true,
		},
		{
			name: "unparseable",
			fsys: fstest.MapFS{
				"init.up.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LatestMigrationVersion(tt.fsys)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMigrateUpCustomSource(t *testing.T) {
	db := openBareDB(t)
	fsys := fstest.MapFS{
		"000001_probe.up.sql":   {Data: []byte("CREATE TABLE probe (id INTEGER);")},
		"000001_probe.down.sql": {Data: []byte("DROP TABLE probe;")},
	}

	if err := db.MigrateUp(fsys); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if !tableExists(t, db, "probe") {
		t.Fatal("Expected probe table")
	}
	if err := db.MigrateDown(fsys); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	if tableExists(t, db, "probe") {
		t.Error("Expected probe table to be dropped")
	}
}
