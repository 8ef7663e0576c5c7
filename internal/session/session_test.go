package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nar-st/motortest/internal/db"
	"github.com/nar-st/motortest/internal/fsutil"
	"github.com/nar-st/motortest/internal/motortest"
	"github.com/nar-st/motortest/internal/testutil"
	"github.com/nar-st/motortest/internal/timeutil"
)

type fakeLedger struct {
	rows []db.Reduction
}

func (f *fakeLedger) RecordReduction(_ context.Context, r db.Reduction) error {
	f.rows = append(f.rows, r)
	return nil
}

func (f *fakeLedger) ListReductionsByFile(_ context.Context, name string) ([]db.Reduction, error) {
	var out []db.Reduction
	for _, r := range f.rows {
		if r.FileName == name {
			out = append(out, r)
		}
	}
	return out, nil
}

func sessionFS() *fsutil.MemoryFileSystem {
	mfs := fsutil.NewMemoryFileSystem()
	curve := testutil.RoundTripCurve()
	mfs.AddFile("motors/C6-5_01.dat", testutil.NewMotorFile(curve).Bytes())
	mfs.AddFile("motors/C6-5_02.DAT", testutil.NewMotorFile(curve).WithName("C6-5_02", "C6-5").Bytes())
	mfs.AddFile("motors/A8-3_01.dat", testutil.NewMotorFile(testutil.Scale(curve, 0.2)).WithName("A8-3_01", "A8-3").Bytes())
	mfs.AddFile("motors/bad.dat", []byte("too\nshort\n"))
	mfs.AddFile("motors/dup.dat", testutil.NewMotorFile(curve).Bytes())
	mfs.AddFile("motors/notes.txt", []byte("not a motor"))
	mfs.AddFile("motors/old/C6-5_00.dat", testutil.NewMotorFile(curve).Bytes())
	return mfs
}

func newRunner(mfs *fsutil.MemoryFileSystem, ledger Ledger) *Runner {
	clock := timeutil.NewMockClock(time.Date(2019, 6, 1, 16, 0, 0, 0, time.UTC))
	return NewRunner(motortest.NewProcessor(mfs, nil, nil, clock), ledger)
}

func TestFindMotorFiles(t *testing.T) {
	files, err := FindMotorFiles(sessionFS(), "motors", []string{".dat"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"motors/A8-3_01.dat",
		"motors/C6-5_01.dat",
		"motors/C6-5_02.DAT",
		"motors/bad.dat",
		"motors/dup.dat",
	}, files)
}

func TestMotorTypeDir(t *testing.T) {
	assert.Equal(t, "C6-5", MotorTypeDir(" C6-5 "))
	assert.Equal(t, UnknownMotorType, MotorTypeDir(""))
	assert.Equal(t, "x", MotorTypeDir("../x"))
}

func TestReduce(t *testing.T) {
	res, err := newRunner(sessionFS(), nil).Reduce(context.Background(), "motors")
	require.NoError(t, err)
	require.Len(t, res.Motors, 5)
	assert.Equal(t, "motors/session", res.OutputDir)

	byPath := map[string]*Motor{}
	for _, m := range res.Motors {
		byPath[m.Record.SourcePath] = m
		assert.Equal(t, res.ID, m.Record.SessionID)
	}

	assert.Equal(t, "motors/session/A8-3", byPath["motors/A8-3_01.dat"].OutputDir)
	assert.Equal(t, motortest.OK, byPath["motors/C6-5_01.dat"].Record.Verdict())

	bad := byPath["motors/bad.dat"]
	assert.True(t, errors.Is(bad.Err, motortest.ErrMalformedRecord))
	assert.False(t, bad.Writable())

	dup := byPath["motors/dup.dat"]
	assert.True(t, dup.Duplicate)
	assert.Equal(t, motortest.Fail, dup.Record.Verdict())
	assert.Contains(t, dup.Record.Comments(), "Duplicate output name C6-5_01.")
	assert.False(t, byPath["motors/C6-5_01.dat"].Duplicate, "the first file in order keeps the name")
}

func TestReduceRejectsEmptyDirectory(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	mfs.AddFile("empty/readme.txt", nil)
	_, err := newRunner(mfs, nil).Reduce(context.Background(), "empty")
	assert.ErrorIs(t, err, ErrNoMotorFiles)
}

func TestReduceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newRunner(sessionFS(), nil).Reduce(ctx, "motors")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcess(t *testing.T) {
	mfs := sessionFS()
	ledger := &fakeLedger{}
	res, err := newRunner(mfs, ledger).Process(context.Background(), "motors")
	require.NoError(t, err)

	for _, name := range []string{
		"motors/session/C6-5/C6-5_01.txt",
		"motors/session/C6-5/C6-5_01.png",
		"motors/session/C6-5/C6-5_01.html",
		"motors/session/C6-5/C6-5_02.txt",
		"motors/session/A8-3/A8-3_01.txt",
		"motors/session/summary.txt",
	} {
		_, err := mfs.Stat(name)
		assert.NoError(t, err, name)
	}
	out, err := mfs.Walk("motors/session")
	require.NoError(t, err)
	assert.Len(t, out, 10, "three motors with three artifacts each plus the summary")

	require.Len(t, ledger.rows, 5)
	for _, r := range ledger.rows {
		assert.Equal(t, res.ID, r.SessionID)
	}

	summary, err := mfs.ReadFile("motors/session/summary.txt")
	require.NoError(t, err)
	text := string(summary)
	assert.Contains(t, text, "Motors:              5\n")
	assert.Contains(t, text, "Results:             OK 3  WARN 0  FAIL 2\n")
	assert.Contains(t, text, "\nA8-3\n")
	assert.Contains(t, text, "Duplicate output name C6-5_01.")
	assert.Less(t, strings.Index(text, "\nA8-3\n"), strings.Index(text, "\nC6-5\n"))
}

func TestReport(t *testing.T) {
	mfs := sessionFS()
	ledger := &fakeLedger{}
	r := newRunner(mfs, ledger)
	_, err := r.Process(context.Background(), "motors")
	require.NoError(t, err)

	res, err := r.Report(context.Background(), "motors")
	require.NoError(t, err)
	for _, name := range []string{
		"motors/session/C6-5/C6-5_01.pdf",
		"motors/session/C6-5/C6-5_02.pdf",
		"motors/session/A8-3/A8-3_01.pdf",
		"motors/session/session.pdf",
	} {
		data, err := mfs.ReadFile(name)
		require.NoError(t, err, name)
		assert.True(t, strings.HasPrefix(string(data), "%PDF-"), name)
	}
	assert.Len(t, ledger.rows, 5, "reports do not add ledger rows")
	assert.NotEmpty(t, res.ID)
}

func TestBundle(t *testing.T) {
	mfs := sessionFS()
	r := newRunner(mfs, nil)
	_, err := r.Process(context.Background(), "motors")
	require.NoError(t, err)

	_, archive, err := r.Bundle(context.Background(), "motors")
	require.NoError(t, err)
	assert.Equal(t, "motors/session/session.zip", archive.Archive)

	for _, name := range []string{
		"motors/session/C6-5/C6-5_01.zip",
		"motors/session/C6-5/C6-5_02.zip",
		"motors/session/A8-3/A8-3_01.zip",
	} {
		_, err := mfs.Stat(name)
		assert.NoError(t, err, name)
	}
	assert.Contains(t, archive.Files, "motors/session/summary.txt")
	assert.Contains(t, archive.Files, "motors/session/C6-5/C6-5_01.zip")
}

func TestBundleWithoutArtifacts(t *testing.T) {
	_, _, err := newRunner(sessionFS(), nil).Bundle(context.Background(), "motors")
	assert.Error(t, err, "an unprocessed session has nothing to archive")
}

func TestOutputDirOverride(t *testing.T) {
	mfs := sessionFS()
	r := newRunner(mfs, nil)
	r.OutputDir = "results"
	res, err := r.Process(context.Background(), "motors")
	require.NoError(t, err)
	assert.Equal(t, "results", res.OutputDir)

	_, err = mfs.Stat("results/C6-5/C6-5_01.txt")
	assert.NoError(t, err)
	_, err = mfs.Stat("results/summary.txt")
	assert.NoError(t, err)
}
