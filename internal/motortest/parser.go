package motortest

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nar-st/motortest/internal/config"
	"github.com/nar-st/motortest/internal/fsutil"
)

// RawFile is the content of a motor file split into lines.
type RawFile struct {
	Path   string
	Lines  []string
	SHA256 string
}

// ReadMotorFile reads path from fsys and splits it into lines. Line endings
// (\n or \r\n) are removed; no other trimming is done.
func ReadMotorFile(fsys fsutil.FileSystem, path string) (*RawFile, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return nil, &MalformedRecordError{Path: path, Reason: "Motor data file not readable: " + path, Err: err}
	}
	if info.IsDir() {
		return nil, &MalformedRecordError{Path: path, Reason: "Motor data file not readable: " + path, Err: errors.New("is a directory")}
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, &MalformedRecordError{Path: path, Reason: "Motor data file not readable: " + path, Err: err}
	}

	sum := sha256.Sum256(data)
	raw := &RawFile{Path: path, SHA256: hex.EncodeToString(sum[:])}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw.Lines = append(raw.Lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, &MalformedRecordError{Path: path, Reason: "Motor data file not readable: " + path, Err: err}
	}
	return raw, nil
}

// Parse fills rec from the raw lines of a motor file. The first
// config.HeaderLines lines are the positional header; the rest are samples.
//
// A structural problem (too few lines, a value that does not parse as its
// field's kind, a non-numeric sample) escalates the record to FAIL and is
// returned as a *MalformedRecordError. No reduction should follow.
func Parse(rec *TestRecord, lines []string, cfg *config.ReductionConfig) error {
	if rec == nil || rec.Trail == nil {
		return errors.New("motortest: Parse called with nil record")
	}
	log := rec.Trail.Logger()
	rec.LineCount = len(lines)

	if len(lines) < cfg.GetMinFileLines() {
		return rec.malformed(0, "Insufficient Header Row Count in "+rec.SourcePath, nil)
	}

	var h Header
	for _, field := range headerFields {
		value := strings.TrimSpace(lines[field.ID])
		log.Debug("header field", zap.String("name", field.Name), zap.String("value", value))
		if value == "" || value == Placeholder {
			continue
		}
		if err := field.set(&h, value); err != nil {
			reason := fmt.Sprintf("Header field %s is not a valid %s: %q", field.Name, field.Kind, value)
			return rec.malformed(int(field.ID)+1, reason, err)
		}
	}
	rec.Header = h

	region := lines[config.HeaderLines:]
	for len(region) > 0 && strings.TrimSpace(region[len(region)-1]) == "" {
		region = region[:len(region)-1]
	}
	if len(region) == 0 {
		// Replaced by the too-few-points check.
		rec.Samples = []float64{0}
		return nil
	}

	samples := make([]float64, len(region))
	for i, line := range region {
		lineNo := config.HeaderLines + i + 1
		value := strings.TrimSpace(line)
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return rec.malformed(lineNo, fmt.Sprintf("Data point is not numeric: %q", value), err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return rec.malformed(lineNo, fmt.Sprintf("Data point is not a finite number: %q", value), nil)
		}
		samples[i] = v
	}
	rec.Samples = samples
	log.Debug("found graph points", zap.Int("count", len(samples)))
	return nil
}

func (r *TestRecord) malformed(line int, reason string, err error) error {
	merr := &MalformedRecordError{Path: r.SourcePath, Line: line, Reason: reason, Err: err}
	comment := reason
	if line > 0 {
		comment = fmt.Sprintf("%s (line %d).", strings.TrimSuffix(reason, "."), line)
	}
	r.Trail.Fail(comment, zap.Error(merr))
	return merr
}
