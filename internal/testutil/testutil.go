// Package testutil builds synthetic motor test files for package tests.
//
// Header positions follow the fixed 30-line layout of the motor file format;
// use the motortest.Field* constants as indexes into MotorFile.Header.
package testutil

import (
	"strconv"
	"strings"
)

// HeaderLines is the number of positional header lines in a motor file.
const HeaderLines = 30

// Header positions used by the default fixture.
const (
	posFileName           = 0
	posMotorType          = 6
	posNumberDataPoints   = 16
	posGraphPointsPerSec  = 26
	posMaxTestLength      = 27
	posDataPointAveraging = 28
	posScanRatePerSec     = 29
)

// MotorFile is an in-memory motor file: 30 header values plus samples.
type MotorFile struct {
	Header  [HeaderLines]string
	Samples []string
}

// NewMotorFile returns a consistent file (100 points/s, 1000 scans/s
// averaged by 10, 5 s maximum) carrying samples, with number_data_points
// set to len(samples).
func NewMotorFile(samples []float64) *MotorFile {
	m := &MotorFile{
		Header: [HeaderLines]string{
			"C6-5_01",    // file_name
			"J. Kane",    // operator
			"Estes",      // mfg
			"10:30",      // test_time
			"2019-06-01", // test_date
			"350",        // site_elevation
			"C6-5",       // motor_type
			"*",          // casing_code
			"BP",         // propellant_type
			"12.3",       // propellant_mass
			"18",         // casing_diameter
			"70",         // casing_length
			"24.1",       // initial_mass
			"11.6",       // burned_out_mass
			"21.5",       // test_temperature
			"*",          // max_casing_temperature
			"",           // number_data_points
			"5",          // ejection_delay
			"113",        // max_liftoff_weight
			"*", "*", "*", "*", "*", "*", "*", // reserved_7 .. reserved_1
			"100",  // graph_points_per_sec
			"5",    // max_test_length
			"10",   // data_point_averaging
			"1000", // scan_rate_per_sec
		},
	}
	m.SetSamples(samples)
	return m
}

// SetSamples replaces the samples and keeps number_data_points in step.
func (m *MotorFile) SetSamples(samples []float64) *MotorFile {
	m.Samples = make([]string, len(samples))
	for i, v := range samples {
		m.Samples[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	m.Header[posNumberDataPoints] = strconv.Itoa(len(samples))
	return m
}

// Set overwrites the header value at position pos.
func (m *MotorFile) Set(pos int, value string) *MotorFile {
	m.Header[pos] = value
	return m
}

// WithName sets both file_name and motor_type.
func (m *MotorFile) WithName(fileName, motorType string) *MotorFile {
	m.Header[posFileName] = fileName
	m.Header[posMotorType] = motorType
	return m
}

// WithRates sets the four acquisition parameters.
func (m *MotorFile) WithRates(graphPerSec, maxLength, averaging, scanPerSec int) *MotorFile {
	m.Header[posGraphPointsPerSec] = strconv.Itoa(graphPerSec)
	m.Header[posMaxTestLength] = strconv.Itoa(maxLength)
	m.Header[posDataPointAveraging] = strconv.Itoa(averaging)
	m.Header[posScanRatePerSec] = strconv.Itoa(scanPerSec)
	return m
}

// Lines returns the file content as lines.
func (m *MotorFile) Lines() []string {
	lines := make([]string, 0, HeaderLines+len(m.Samples))
	lines = append(lines, m.Header[:]...)
	return append(lines, m.Samples...)
}

// Bytes returns the file content with a trailing newline.
func (m *MotorFile) Bytes() []byte {
	return []byte(strings.Join(m.Lines(), "\n") + "\n")
}

// RoundTripCurve returns 64 samples: a linear rise from 0 to 50 over 10
// samples, 40 samples held at 50, then a linear fall to 0 over 14 samples.
func RoundTripCurve() []float64 {
	var s []float64
	for i := 0; i < 10; i++ {
		s = append(s, 50*float64(i)/9)
	}
	for i := 0; i < 40; i++ {
		s = append(s, 50)
	}
	for i := 1; i <= 14; i++ {
		s = append(s, 50*(1-float64(i)/14))
	}
	return s
}

// BurnCurve returns pre samples alternating around offset by ±noise, burn
// samples at offset+height, and post samples back at the noisy offset.
func BurnCurve(pre, burn, post int, offset, noise, height float64) []float64 {
	s := make([]float64, 0, pre+burn+post)
	jitter := func(i int) float64 {
		if i%2 == 0 {
			return offset + noise
		}
		return offset - noise
	}
	for i := 0; i < pre; i++ {
		s = append(s, jitter(i))
	}
	for i := 0; i < burn; i++ {
		s = append(s, offset+height)
	}
	for i := 0; i < post; i++ {
		s = append(s, jitter(i))
	}
	return s
}

// Scale multiplies every sample by c.
func Scale(samples []float64, c float64) []float64 {
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = v * c
	}
	return out
}
