package motortest

import (
	"fmt"
	"strconv"

	"github.com/nar-st/motortest/internal/config"
)

// Sentinels printed in reports for header values that were not provided.
const (
	UnsetInt   = -1
	UnsetFloat = -1.0
)

// Placeholder is the header line value meaning "not provided".
const Placeholder = "*"

// Header is the typed form of the 30 positional header lines of a motor file.
type Header struct {
	FileName             Optional[string]
	Operator             Optional[string]
	Manufacturer         Optional[string]
	TestTime             Optional[string]
	TestDate             Optional[string]
	SiteElevation        Optional[int]
	MotorType            Optional[string]
	CasingCode           Optional[string]
	PropellantType       Optional[string]
	PropellantMass       Optional[float64]
	CasingDiameter       Optional[int]
	CasingLength         Optional[int]
	InitialMass          Optional[float64]
	BurnedOutMass        Optional[float64]
	TestTemperature      Optional[float64]
	MaxCasingTemperature Optional[float64]
	NumberDataPoints     Optional[int]
	EjectionDelay        Optional[int]
	MaxLiftoffWeight     Optional[string]

	// Reserved holds reserved_7 .. reserved_1 in file order.
	Reserved [7]Optional[string]

	GraphPointsPerSec  Optional[int]
	MaxTestLength      Optional[int]
	DataPointAveraging Optional[int]
	ScanRatePerSec     Optional[int]
}

// FieldKind is the scalar type a header line is parsed as.
type FieldKind int

const (
	KindString FieldKind = iota
	KindInt
	KindFloat
)

func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// FieldID identifies a header field; its value is the 0-based line position.
type FieldID int

const (
	FieldFileName FieldID = iota
	FieldOperator
	FieldManufacturer
	FieldTestTime
	FieldTestDate
	FieldSiteElevation
	FieldMotorType
	FieldCasingCode
	FieldPropellantType
	FieldPropellantMass
	FieldCasingDiameter
	FieldCasingLength
	FieldInitialMass
	FieldBurnedOutMass
	FieldTestTemperature
	FieldMaxCasingTemperature
	FieldNumberDataPoints
	FieldEjectionDelay
	FieldMaxLiftoffWeight
	FieldReserved7
	FieldReserved6
	FieldReserved5
	FieldReserved4
	FieldReserved3
	FieldReserved2
	FieldReserved1
	FieldGraphPointsPerSec
	FieldMaxTestLength
	FieldDataPointAveraging
	FieldScanRatePerSec

	fieldCount
)

// HeaderField is one row of the positional header table.
type HeaderField struct {
	ID   FieldID
	Name string
	Kind FieldKind
	set  func(h *Header, raw string) error
}

func stringField(id FieldID, name string, ptr func(*Header) *Optional[string]) HeaderField {
	return HeaderField{ID: id, Name: name, Kind: KindString, set: func(h *Header, raw string) error {
		*ptr(h) = Some(raw)
		return nil
	}}
}

func intField(id FieldID, name string, ptr func(*Header) *Optional[int]) HeaderField {
	return HeaderField{ID: id, Name: name, Kind: KindInt, set: func(h *Header, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*ptr(h) = Some(v)
		return nil
	}}
}

func floatField(id FieldID, name string, ptr func(*Header) *Optional[float64]) HeaderField {
	return HeaderField{ID: id, Name: name, Kind: KindFloat, set: func(h *Header, raw string) error {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		*ptr(h) = Some(v)
		return nil
	}}
}

func reservedField(id FieldID, name string, slot int) HeaderField {
	return stringField(id, name, func(h *Header) *Optional[string] { return &h.Reserved[slot] })
}

var headerFields = [...]HeaderField{
	stringField(FieldFileName, "file_name", func(h *Header) *Optional[string] { return &h.FileName }),
	stringField(FieldOperator, "operator", func(h *Header) *Optional[string] { return &h.Operator }),
	stringField(FieldManufacturer, "mfg", func(h *Header) *Optional[string] { return &h.Manufacturer }),
	stringField(FieldTestTime, "test_time", func(h *Header) *Optional[string] { return &h.TestTime }),
	stringField(FieldTestDate, "test_date", func(h *Header) *Optional[string] { return &h.TestDate }),
	intField(FieldSiteElevation, "site_elevation", func(h *Header) *Optional[int] { return &h.SiteElevation }),
	stringField(FieldMotorType, "motor_type", func(h *Header) *Optional[string] { return &h.MotorType }),
	stringField(FieldCasingCode, "casing_code", func(h *Header) *Optional[string] { return &h.CasingCode }),
	stringField(FieldPropellantType, "propellant_type", func(h *Header) *Optional[string] { return &h.PropellantType }),
	floatField(FieldPropellantMass, "propellant_mass", func(h *Header) *Optional[float64] { return &h.PropellantMass }),
	intField(FieldCasingDiameter, "casing_diameter", func(h *Header) *Optional[int] { return &h.CasingDiameter }),
	intField(FieldCasingLength, "casing_length", func(h *Header) *Optional[int] { return &h.CasingLength }),
	floatField(FieldInitialMass, "initial_mass", func(h *Header) *Optional[float64] { return &h.InitialMass }),
	floatField(FieldBurnedOutMass, "burned_out_mass", func(h *Header) *Optional[float64] { return &h.BurnedOutMass }),
	floatField(FieldTestTemperature, "test_temperature", func(h *Header) *Optional[float64] { return &h.TestTemperature }),
	floatField(FieldMaxCasingTemperature, "max_casing_temperature", func(h *Header) *Optional[float64] { return &h.MaxCasingTemperature }),
	intField(FieldNumberDataPoints, "number_data_points", func(h *Header) *Optional[int] { return &h.NumberDataPoints }),
	intField(FieldEjectionDelay, "ejection_delay", func(h *Header) *Optional[int] { return &h.EjectionDelay }),
	stringField(FieldMaxLiftoffWeight, "max_liftoff_weight", func(h *Header) *Optional[string] { return &h.MaxLiftoffWeight }),
	reservedField(FieldReserved7, "reserved_7", 0),
	reservedField(FieldReserved6, "reserved_6", 1),
	reservedField(FieldReserved5, "reserved_5", 2),
	reservedField(FieldReserved4, "reserved_4", 3),
	reservedField(FieldReserved3, "reserved_3", 4),
	reservedField(FieldReserved2, "reserved_2", 5),
	reservedField(FieldReserved1, "reserved_1", 6),
	intField(FieldGraphPointsPerSec, "graph_points_per_sec", func(h *Header) *Optional[int] { return &h.GraphPointsPerSec }),
	intField(FieldMaxTestLength, "max_test_length", func(h *Header) *Optional[int] { return &h.MaxTestLength }),
	intField(FieldDataPointAveraging, "data_point_averaging", func(h *Header) *Optional[int] { return &h.DataPointAveraging }),
	intField(FieldScanRatePerSec, "scan_rate_per_sec", func(h *Header) *Optional[int] { return &h.ScanRatePerSec }),
}

func init() {
	if err := validateHeaderFields(headerFields[:]); err != nil {
		panic(err)
	}
}

// validateHeaderFields checks the table is complete, in line order and free of duplicate names.
func validateHeaderFields(fields []HeaderField) error {
	if len(fields) != int(fieldCount) || len(fields) != config.HeaderLines {
		return fmt.Errorf("header table has %d fields, want %d", len(fields), config.HeaderLines)
	}
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		if f.ID != FieldID(i) {
			return fmt.Errorf("header field %q is at position %d but has id %d", f.Name, i, f.ID)
		}
		if f.Name == "" || seen[f.Name] {
			return fmt.Errorf("header field at position %d has empty or duplicate name %q", i, f.Name)
		}
		if f.set == nil {
			return fmt.Errorf("header field %q has no setter", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// HeaderFields returns a copy of the positional header table.
func HeaderFields() []HeaderField {
	return append([]HeaderField(nil), headerFields[:]...)
}

// Field returns the table row for id.
func Field(id FieldID) (HeaderField, bool) {
	if id < 0 || id >= fieldCount {
		return HeaderField{}, false
	}
	return headerFields[id], true
}

func (id FieldID) String() string {
	if f, ok := Field(id); ok {
		return f.Name
	}
	return fmt.Sprintf("FieldID(%d)", int(id))
}
