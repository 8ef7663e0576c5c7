package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nar-st/motortest/internal/db"
	"github.com/nar-st/motortest/internal/fsutil"
	"github.com/nar-st/motortest/internal/logging"
	"github.com/nar-st/motortest/internal/motortest"
	"github.com/nar-st/motortest/internal/testutil"
	"github.com/nar-st/motortest/internal/timeutil"
	"github.com/nar-st/motortest/internal/version"
)

var testNow = time.Date(2019, 6, 1, 16, 0, 0, 0, time.UTC)

type testApp struct {
	*app
	mfs    *fsutil.MemoryFileSystem
	out    *bytes.Buffer
	errOut *bytes.Buffer
	ledger string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	var out, errOut bytes.Buffer
	a := newApp(&out, &errOut)
	mfs := fsutil.NewMemoryFileSystem()
	curve := testutil.RoundTripCurve()
	mfs.AddFile("motors/C6-5_01.dat", testutil.NewMotorFile(curve).Bytes())
	mfs.AddFile("motors/A8-3_01.dat", testutil.NewMotorFile(testutil.Scale(curve, 0.2)).WithName("A8-3_01", "A8-3").Bytes())
	mfs.AddFile("motors/bad.dat", []byte("too\nshort\n"))
	a.fs = mfs
	a.clock = timeutil.NewMockClock(testNow)
	a.logDir = t.TempDir()
	return &testApp{
		app:    a,
		mfs:    mfs,
		out:    &out,
		errOut: &errOut,
		ledger: filepath.Join(t.TempDir(), "motortest.db"),
	}
}

// exec runs one command line against the test ledger. The filesystem is
// kept between calls.
func (ta *testApp) exec(args ...string) error {
	ta.out.Reset()
	ta.errOut.Reset()
	return run(context.Background(), ta.app, append(args, "--db", ta.ledger))
}

func (ta *testApp) ledgerRows(t *testing.T, fileName string) []db.Reduction {
	t.Helper()
	d, err := db.Open(ta.ledger, zap.NewNop())
	require.NoError(t, err)
	defer d.Close()
	rows, err := d.ListReductionsByFile(context.Background(), fileName)
	require.NoError(t, err)
	return rows
}

func (ta *testApp) exists(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		_, err := ta.mfs.Stat(name)
		assert.NoError(t, err, name)
	}
}

func TestProcessMotor(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("process", "motor", "motors/C6-5_01.dat", "--nolog"))

	ta.exists(t, "motors/C6-5_01.txt", "motors/C6-5_01.png", "motors/C6-5_01.html")
	out := ta.out.String()
	assert.Contains(t, out, "Processed File:   motors/C6-5_01.dat\n")
	assert.Contains(t, out, "Result:           OK\n")
	assert.Contains(t, out, "Peak Thrust:      50.0\n")
	assert.Contains(t, out, fmt.Sprintf("%-18s%s\n", "Report:", "motors/C6-5_01.txt"))
	assert.Contains(t, out, fmt.Sprintf("%-18s%s\n", "Thrustcurve:", "motors/C6-5_01.png"))
	assert.Contains(t, ta.errOut.String(), "motortest complete.")

	rows := ta.ledgerRows(t, "C6-5_01")
	require.Len(t, rows, 1)
	assert.Equal(t, motortest.OK, rows[0].Verdict)
	assert.Equal(t, 50.0, rows[0].MaxImpulse)
}

func TestProcessMotorMalformed(t *testing.T) {
	ta := newTestApp(t)
	err := ta.exec("process", "motor", "motors/bad.dat", "--nolog")
	require.Error(t, err)
	assert.ErrorIs(t, err, motortest.ErrMalformedRecord)

	assert.Contains(t, ta.out.String(), "Result:           FAIL\n")
	assert.NotContains(t, ta.out.String(), "Total Impulse:")
	_, statErr := ta.mfs.Stat("motors/bad.txt")
	assert.Error(t, statErr)

	rows := ta.ledgerRows(t, "bad")
	require.Len(t, rows, 1)
	assert.Equal(t, motortest.Fail, rows[0].Verdict)
}

func TestProcessMotorOutputDir(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("process", "motor", "motors/C6-5_01.dat", "--nolog", "--out", "results"))
	ta.exists(t, "results/C6-5_01.txt", "results/C6-5_01.png", "results/C6-5_01.html")
}

func TestReportMotorCarriesHistory(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("process", "motor", "motors/C6-5_01.dat", "--nolog"))
	require.NoError(t, ta.exec("report", "motor", "motors/C6-5_01.dat", "--nolog"))

	pdf, err := ta.mfs.ReadFile("motors/C6-5_01.pdf")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Contains(t, ta.out.String(), fmt.Sprintf("%-18s%s\n", "PDF Report:", "motors/C6-5_01.pdf"))
	assert.Len(t, ta.ledgerRows(t, "C6-5_01"), 1, "reports do not add ledger rows")
}

func TestBundleMotor(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("process", "motor", "motors/C6-5_01.dat", "--nolog"))
	require.NoError(t, ta.exec("bundle", "motor", "motors/C6-5_01.dat", "--nolog"))

	ta.exists(t, "motors/C6-5_01.zip")
	out := ta.out.String()
	assert.Contains(t, out, fmt.Sprintf("%-18s%s\n", "Bundle:", "motors/C6-5_01.zip"))
	for _, name := range []string{"C6-5_01.dat", "C6-5_01.txt", "C6-5_01.png", "C6-5_01.html"} {
		assert.Contains(t, out, name)
	}
}

func TestBundleMotorMalformed(t *testing.T) {
	ta := newTestApp(t)
	assert.ErrorIs(t, ta.exec("bundle", "motor", "motors/bad.dat", "--nolog"), motortest.ErrMalformedRecord)
	_, err := ta.mfs.Stat("motors/bad.zip")
	assert.Error(t, err)
}

func TestSessionTasks(t *testing.T) {
	ta := newTestApp(t)

	require.NoError(t, ta.exec("process", "session", "motors", "--nolog"))
	ta.exists(t,
		"motors/session/summary.txt",
		"motors/session/C6-5/C6-5_01.txt",
		"motors/session/A8-3/A8-3_01.png",
	)
	assert.Equal(t, 3, strings.Count(ta.out.String(), "Processed File:"))
	assert.Len(t, ta.ledgerRows(t, "A8-3_01"), 1)

	require.NoError(t, ta.exec("report", "session", "motors", "--nolog"))
	ta.exists(t, "motors/session/session.pdf", "motors/session/C6-5/C6-5_01.pdf")
	assert.Contains(t, ta.out.String(), "motors/session/session.pdf")

	require.NoError(t, ta.exec("bundle", "session", "motors", "--nolog"))
	ta.exists(t, "motors/session/session.zip", "motors/session/C6-5/C6-5_01.zip")
	assert.Contains(t, ta.out.String(), fmt.Sprintf("%-18s%s\n", "Bundle:", "motors/session/session.zip"))
}

func TestSessionWithoutMotorFiles(t *testing.T) {
	ta := newTestApp(t)
	ta.mfs.AddFile("empty/notes.txt", []byte("none"))
	assert.Error(t, ta.exec("process", "session", "empty", "--nolog"))
}

func TestLogFile(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("process", "motor", "motors/C6-5_01.dat", "--silent"))

	path := filepath.Join(ta.logDir, logging.FileName(testNow, "process", "motor", "motors/C6-5_01.dat"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "motortest started.")
	assert.Contains(t, text, "Console messaging is silenced")
	assert.Contains(t, text, "motortest complete.")
	assert.Empty(t, ta.out.String())
	assert.Empty(t, ta.errOut.String())
}

func TestDebugConsole(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("process", "motor", "motors/C6-5_01.dat", "--nolog", "--debug"))
	assert.Contains(t, ta.errOut.String(), "arguments")
	assert.Contains(t, ta.errOut.String(), "Logging to file is silenced")
}

func TestTargetErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown target type", []string{"process", "planet", "x"}},
		{"missing target", []string{"process", "motor"}},
		{"extra target", []string{"bundle", "session", "a", "b"}},
		{"missing file", []string{"process", "motor", "motors/none.dat"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)
			assert.Error(t, ta.exec(append(tt.args, "--nolog")...))
		})
	}
}

func TestConfigFlag(t *testing.T) {
	ta := newTestApp(t)
	cfgPath := filepath.Join(t.TempDir(), "reduction.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"certification_type": "High Power"}`), 0o644))

	require.NoError(t, ta.exec("process", "motor", "motors/C6-5_01.dat", "--nolog", "--config", cfgPath))
	summary, err := ta.mfs.ReadFile("motors/C6-5_01.txt")
	require.NoError(t, err)
	assert.Contains(t, string(summary), "High Power")

	bad := filepath.Join(t.TempDir(), "reduction.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"session_workers": 0}`), 0o644))
	assert.Error(t, ta.exec("process", "motor", "motors/C6-5_01.dat", "--nolog", "--config", bad))
}

func TestVersion(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("version"))
	assert.Equal(t, "motortest "+version.String()+"\n", ta.out.String())
}

func TestMigrate(t *testing.T) {
	ta := newTestApp(t)

	require.NoError(t, ta.exec("migrate", "status"))
	assert.Contains(t, ta.out.String(), "Current version: 0\n")

	require.NoError(t, ta.exec("migrate", "up"))
	assert.Contains(t, ta.out.String(), "Current version: 1\n")
	assert.Contains(t, ta.out.String(), "Dirty: false\n")

	require.NoError(t, ta.exec("migrate", "down"))
	assert.Contains(t, ta.out.String(), "Current version: 0\n")
}

var errConsoleClosed = errors.New("console closed")

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errConsoleClosed }

func TestConsoleErrorsOnFailedMotor(t *testing.T) {
	for _, task := range []string{"process", "report", "bundle"} {
		t.Run(task, func(t *testing.T) {
			ta := newTestApp(t)
			ta.stdout = brokenWriter{}
			err := ta.exec(task, "motor", "motors/bad.dat", "--nolog")
			assert.ErrorIs(t, err, motortest.ErrMalformedRecord)
			assert.ErrorIs(t, err, errConsoleClosed)
		})
	}
}
