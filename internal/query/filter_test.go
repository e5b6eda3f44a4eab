package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeEmptyValueIsAbsent(t *testing.T) {
	f, err := Canonicalize(FilterInput{MinSizeUnit: MB, MaxSizeValue: "  ", MaxSizeUnit: GB})
	require.NoError(t, err)
	assert.Nil(t, f.MinSizeBytes)
	assert.Nil(t, f.MaxSizeBytes)
	assert.True(t, f.IsZero())
}

func TestCanonicalizeSizes(t *testing.T) {
	tests := []struct {
		value string
		unit  Unit
		want  int64
	}{
		{"1.5", MB, 1572864},
		{"0", KB, 0},
		{"10", Bytes, 10},
		{"2", GB, 2147483648},
		{"0.5", KB, 512},
		{"1.0004", KB, 1024},
		{"3", "", 3072},
	}
	for _, tt := range tests {
		t.Run(tt.value+string(tt.unit), func(t *testing.T) {
			f, err := Canonicalize(FilterInput{MinSizeValue: tt.value, MinSizeUnit: tt.unit})
			require.NoError(t, err)
			require.NotNil(t, f.MinSizeBytes)
			assert.Equal(t, tt.want, *f.MinSizeBytes)
		})
	}
}

func TestCanonicalizeRejectsBadInput(t *testing.T) {
	for name, in := range map[string]FilterInput{
		"not a number": {MinSizeValue: "abc", MinSizeUnit: KB},
		"negative":     {MaxSizeValue: "-1", MaxSizeUnit: KB},
		"bad unit":     {MaxSizeValue: "1", MaxSizeUnit: "TB"},
		"too large":    {MinSizeValue: "99999999999", MinSizeUnit: GB},
		"bad date":     {StartDate: "01/02/2024"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Canonicalize(in)
			assert.Error(t, err)
		})
	}
}

func TestCanonicalizeOverflowNamesField(t *testing.T) {
	_, err := Canonicalize(FilterInput{MinSizeValue: "99999999999", MinSizeUnit: GB})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min size")

	f, err := Canonicalize(FilterInput{MaxSizeValue: "8000000", MaxSizeUnit: GB})
	require.NoError(t, err)
	require.NotNil(t, f.MaxSizeBytes)
	assert.Greater(t, *f.MaxSizeBytes, int64(0))
}

func TestCanonicalizeMimeAll(t *testing.T) {
	f, err := Canonicalize(FilterInput{MimeType: "All", StartDate: "2024-03-01"})
	require.NoError(t, err)
	assert.Empty(t, f.MimeType)
	assert.Equal(t, "2024-03-01", f.StartDate)
}

func TestDisplay(t *testing.T) {
	n := func(v int64) *int64 { return &v }

	tests := []struct {
		name  string
		bytes *int64
		value string
		unit  Unit
	}{
		{"unset", nil, "", KB},
		{"zero", n(0), "", KB},
		{"bytes", n(512), "512", Bytes},
		{"whole kb", n(2048), "2", KB},
		{"fractional mb", n(1572864), "1.50", MB},
		{"whole gb", n(2147483648), "2", GB},
		{"just under mb", n(1048575), "1024", KB},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, u := Display(tt.bytes)
			assert.Equal(t, tt.value, v)
			assert.Equal(t, tt.unit, u)
		})
	}
}

func TestRoundTripToDisplay(t *testing.T) {
	f, err := Canonicalize(FilterInput{MaxSizeValue: "2", MaxSizeUnit: GB})
	require.NoError(t, err)
	assert.Equal(t, "2 GB", DisplaySize(f.MaxSizeBytes))

	in := f.Input()
	assert.Equal(t, "2", in.MaxSizeValue)
	assert.Equal(t, GB, in.MaxSizeUnit)
	assert.Equal(t, "", in.MinSizeValue)
	assert.Equal(t, KB, in.MinSizeUnit)

	again, err := Canonicalize(in)
	require.NoError(t, err)
	assert.Equal(t, f, again)
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]Unit{"b": Bytes, "Bytes": Bytes, "kb": KB, "MB": MB, " gb ": GB} {
		got, err := ParseUnit(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseUnit("TB")
	assert.Error(t, err)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in    string
		value string
		unit  Unit
	}{
		{"", "", KB},
		{"512", "512", Bytes},
		{"1.5MB", "1.5", MB},
		{"200 kb", "200", KB},
		{"2GB", "2", GB},
		{"10B", "10", Bytes},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, u, err := ParseSize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.value, v)
			assert.Equal(t, tt.unit, u)
		})
	}

	for _, bad := range []string{"MB", "3TB", "1.5 parsecs"} {
		_, _, err := ParseSize(bad)
		assert.Error(t, err, bad)
	}
}
