package db

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nar-st/motortest/internal/motortest"
	"github.com/nar-st/motortest/internal/testutil"
	"github.com/nar-st/motortest/internal/timeutil"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "ledger.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestPragmasApplied(t *testing.T) {
	d := openTestDB(t)

	var journalMode string
	require.NoError(t, d.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, d.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)
}

func TestMigrateVersion(t *testing.T) {
	d, err := OpenDB(filepath.Join(t.TempDir(), "fresh.db"), nil)
	require.NoError(t, err)
	defer d.Close()

	version, dirty, err := d.MigrateVersion(Migrations())
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	require.NoError(t, d.MigrateUp(Migrations()))
	require.NoError(t, d.MigrateUp(Migrations()), "re-running is a no-op")

	version, dirty, err = d.MigrateVersion(Migrations())
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	require.NoError(t, d.MigrateDown(Migrations()))
	var n int
	require.NoError(t, d.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='reductions'`).Scan(&n))
	assert.Zero(t, n)
}

func TestMigrateUpCustomSource(t *testing.T) {
	d, err := OpenDB(filepath.Join(t.TempDir(), "custom.db"), nil)
	require.NoError(t, err)
	defer d.Close()

	migrations := fstest.MapFS{
		"000001_demo.up.sql":   &fstest.MapFile{Data: []byte("CREATE TABLE demo (id INTEGER PRIMARY KEY);")},
		"000001_demo.down.sql": &fstest.MapFile{Data: []byte("DROP TABLE IF EXISTS demo;")},
	}
	require.NoError(t, d.MigrateUp(migrations))
	_, err = d.Exec("INSERT INTO demo (id) VALUES (1)")
	assert.NoError(t, err)

	assert.Error(t, d.MigrateUp(nil))
}

func processed(t *testing.T, name string, at time.Time, samples []float64) *motortest.TestRecord {
	t.Helper()
	p := motortest.NewProcessor(nil, nil, nil, timeutil.NewMockClock(at))
	m := testutil.NewMotorFile(samples).WithName(name, "C6-5")
	rec, err := p.ProcessLines(name+".dat", m.Lines())
	require.NoError(t, err)
	rec.ContentSHA256 = "abc123"
	return rec
}

func TestRecordAndListByFile(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	t0 := time.Date(2019, 6, 1, 10, 30, 0, 0, time.UTC)

	first := ReductionFromRecord(processed(t, "C6-5_01", t0, testutil.RoundTripCurve()))
	second := ReductionFromRecord(processed(t, "C6-5_01", t0.Add(time.Hour), testutil.RoundTripCurve()))
	other := ReductionFromRecord(processed(t, "B4-2_01", t0, testutil.RoundTripCurve()))
	for _, r := range []Reduction{second, other, first} {
		require.NoError(t, d.RecordReduction(ctx, r))
	}

	got, err := d.ListReductionsByFile(ctx, "C6-5_01")
	require.NoError(t, err)
	if diff := cmp.Diff([]Reduction{first, second}, got); diff != "" {
		t.Errorf("ListReductionsByFile mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, motortest.OK, got[0].Verdict)
	assert.Equal(t, 50.0, got[0].MaxImpulse)

	none, err := d.ListReductionsByFile(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)

	assert.Error(t, d.RecordReduction(ctx, first), "run ids are unique")
}

func TestListBySession(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	t0 := time.Date(2019, 6, 1, 10, 30, 0, 0, time.UTC)

	for _, tc := range []struct{ name, motor string }{
		{"A8-3_01", "A8-3"},
		{"C6-5_02", "C6-5"},
		{"C6-5_01", "C6-5"},
	} {
		rec := processed(t, tc.name, t0, testutil.RoundTripCurve())
		rec.Header.MotorType = motortest.Some(tc.motor)
		rec.SessionID = "session-1"
		require.NoError(t, d.RecordReduction(ctx, ReductionFromRecord(rec)))
	}
	stray := ReductionFromRecord(processed(t, "D12-3_01", t0, testutil.RoundTripCurve()))
	require.NoError(t, d.RecordReduction(ctx, stray))

	got, err := d.ListReductionsBySession(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A8-3_01", "C6-5_01", "C6-5_02"},
		[]string{got[0].FileName, got[1].FileName, got[2].FileName})
}

func TestReductionFromMalformedRecord(t *testing.T) {
	p := motortest.NewProcessor(nil, nil, nil, nil)
	rec, err := p.ProcessLines("short.dat", []string{"only", "three", "lines"})
	require.Error(t, err)

	r := ReductionFromRecord(rec)
	assert.Equal(t, "short", r.FileName)
	assert.Equal(t, motortest.Fail, r.Verdict)
	assert.Zero(t, r.TotalImpulse)
	assert.Contains(t, r.Comments, "Insufficient Header Row Count")

	d := openTestDB(t)
	require.NoError(t, d.RecordReduction(context.Background(), r))
	got, err := d.ListReductionsByFile(context.Background(), "short")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, motortest.Fail, got[0].Verdict)
}
