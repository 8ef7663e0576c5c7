package motortest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderTableIsValid(t *testing.T) {
	fields := HeaderFields()
	require.NoError(t, validateHeaderFields(fields))
	require.Len(t, fields, 30)

	assert.Equal(t, "file_name", fields[0].Name)
	assert.Equal(t, "scan_rate_per_sec", fields[29].Name)
	assert.Equal(t, KindFloat, fields[FieldPropellantMass].Kind)
	assert.Equal(t, KindInt, fields[FieldNumberDataPoints].Kind)
	assert.Equal(t, KindString, fields[FieldReserved1].Kind)
}

func TestValidateHeaderFieldsRejectsBadTables(t *testing.T) {
	good := HeaderFields()

	short := good[:29]
	assert.Error(t, validateHeaderFields(short))

	swapped := HeaderFields()
	swapped[3], swapped[4] = swapped[4], swapped[3]
	assert.Error(t, validateHeaderFields(swapped))

	dup := HeaderFields()
	dup[5].Name = dup[4].Name
	assert.Error(t, validateHeaderFields(dup))
}

func TestFieldLookup(t *testing.T) {
	f, ok := Field(FieldMotorType)
	require.True(t, ok)
	assert.Equal(t, "motor_type", f.Name)
	assert.Equal(t, "motor_type", FieldMotorType.String())

	_, ok = Field(FieldID(30))
	assert.False(t, ok)
	assert.Equal(t, "FieldID(30)", FieldID(30).String())
}

func TestOptional(t *testing.T) {
	var unset Optional[int]
	assert.False(t, unset.IsSet())
	assert.Equal(t, UnsetInt, unset.Or(UnsetInt))

	set := Some(0)
	v, ok := set.Get()
	assert.True(t, ok)
	assert.Equal(t, 0, v, "zero is a real value, not unset")
	assert.Equal(t, 0, set.Or(UnsetInt))
}

func TestReservedSlotsFollowFileOrder(t *testing.T) {
	var h Header
	for _, id := range []FieldID{FieldReserved7, FieldReserved1} {
		f, _ := Field(id)
		require.NoError(t, f.set(&h, f.Name))
	}
	assert.Equal(t, "reserved_7", h.Reserved[0].Or(""))
	assert.Equal(t, "reserved_1", h.Reserved[6].Or(""))
}
