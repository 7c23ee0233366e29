package database

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrate_AppliesSchemaOnce(t *testing.T) {
	logger := zap.NewNop()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "travel.db")}, logger)
	require.NoError(t, err)
	defer db.Close()

	migrator := NewMigrator(db, logger)
	require.NoError(t, migrator.Migrate())
	require.NoError(t, migrator.Migrate())

	var applied int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 1, applied)

	for _, table := range []string{
		"users", "user_roles", "work_units", "assignments", "assignment_participants",
		"assignment_documentations", "reports", "in_city_reports", "out_city_reports",
		"out_country_reports", "travel_reports", "reviews", "fullboard_prices",
	} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestMigrate_OutCityAllowanceIsExclusive(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "travel.db")}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO users (name, created_at, updated_at) VALUES ('Ani', '2024-01-01', '2024-01-01')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO assignments (purpose, destination, start_date, end_date, creator_id, created_at, updated_at)
		VALUES ('Audit', 'Medan', '2024-03-01', '2024-03-03', 1, '2024-01-01', '2024-01-01')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO reports (user_id, assignment_id, travel_type, travel_order_number, destination_city,
		departure_date, return_date, actual_duration, travel_purpose, created_at, updated_at)
		VALUES (1, 1, 'out_city', 'ST-1', 'Medan', '2024-03-01', '2024-03-03', 3, 'Audit', '2024-01-01', '2024-01-01')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO out_city_reports (report_id, created_at, updated_at) VALUES (1, '2024-01-01', '2024-01-01')`)
	assert.Error(t, err, "neither allowance source set")

	_, err = db.Exec(`INSERT INTO out_city_reports (report_id, custom_daily_allowance, created_at, updated_at)
		VALUES (1, 100, '2024-01-01', '2024-01-01')`)
	assert.NoError(t, err)
}

func TestRunMigrations_RejectsEditedMigration(t *testing.T) {
	logger := zap.NewNop()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "drift.db")}, logger)
	require.NoError(t, err)
	defer db.Close()

	migrator := NewMigrator(db, logger)
	fsys := fstest.MapFS{
		"001_notes.sql": {Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY);")},
	}
	require.NoError(t, migrator.RunMigrations(fsys))

	fsys["002_tags.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE tags (id INTEGER PRIMARY KEY);")}
	require.NoError(t, migrator.RunMigrations(fsys))

	fsys["001_notes.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT);")}
	err = migrator.RunMigrations(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "changed after it was applied")
}

func TestRunMigrations_FailedMigrationIsNotRecorded(t *testing.T) {
	logger := zap.NewNop()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "broken.db")}, logger)
	require.NoError(t, err)
	defer db.Close()

	err = NewMigrator(db, logger).RunMigrations(fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE oops (")},
	})
	require.Error(t, err)

	var applied int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Zero(t, applied)
}

func TestLoadMigrations(t *testing.T) {
	migs, err := LoadMigrations(fstest.MapFS{
		"010_later.sql":  {Data: []byte("SELECT 1;")},
		"002_second.sql": {Data: []byte("SELECT 2;")},
		"README.md":      {Data: []byte("ignored")},
	})
	require.NoError(t, err)
	require.Len(t, migs, 2)
	assert.Equal(t, 2, migs[0].Version)
	assert.Equal(t, "second", migs[0].Name)
	assert.Equal(t, 10, migs[1].Version)
	assert.Len(t, migs[0].Checksum, 64)

	_, err = LoadMigrations(fstest.MapFS{"initial.sql": {Data: []byte("SELECT 1;")}})
	assert.Error(t, err)

	_, err = LoadMigrations(fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"1_b.sql":   {Data: []byte("SELECT 1;")},
	})
	assert.Error(t, err, "duplicate version")
}
