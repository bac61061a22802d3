package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/roach88/entsync/internal/ir"
)

func TestDefaultRegistryHasBuiltins(t *testing.T) {
	r := Default()

	for _, name := range []string{
		StringToIntName, IntToStringName, StringToISO8601DateName, StringToDecimalName,
		LegacyStringToIntName, LegacyIntToStringName, LegacyStringToISO8601Name, LegacyStringToDecimalName,
	} {
		assert.True(t, r.Has(name), name)
	}
	assert.Len(t, r.Names(), 8)
}

func TestDefaultReturnsIndependentRegistries(t *testing.T) {
	a := Default()
	b := Default()

	require.NoError(t, a.Register("Upper", Func(func(v ir.IRValue) (ir.IRValue, bool) { return v, true })))
	assert.True(t, a.Has("Upper"))
	assert.False(t, b.Has("Upper"))
}

func TestRegisterRejectsInvalid(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Register("", StringToInt{}), ErrInvalidRegistration)
	assert.ErrorIs(t, r.Register("x", nil), ErrInvalidRegistration)
}

func TestApplyUnknownName(t *testing.T) {
	_, ok := Default().Apply("Nope", ir.IRString("1"))
	assert.False(t, ok)
}

func TestStringToInt(t *testing.T) {
	tests := []struct {
		name   string
		in     ir.IRValue
		want   ir.IRValue
		wantOK bool
	}{
		{"positive", ir.IRString("42"), ir.IRInt(42), true},
		{"negative", ir.IRString("-7"), ir.IRInt(-7), true},
		{"plus sign", ir.IRString("+7"), ir.IRInt(7), true},
		{"not a number", ir.IRString("abc"), nil, false},
		{"decimal", ir.IRString("1.5"), nil, false},
		{"empty", ir.IRString(""), nil, false},
		{"already int", ir.IRInt(3), nil, false},
		{"null", ir.IRNull{}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StringToInt{}.Transform(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntToString(t *testing.T) {
	tests := []struct {
		name   string
		in     ir.IRValue
		want   ir.IRValue
		wantOK bool
	}{
		{"int", ir.IRInt(42), ir.IRString("42"), true},
		{"negative", ir.IRInt(-1), ir.IRString("-1"), true},
		{"integral float", ir.IRFloat(5), ir.IRString("5"), true},
		{"fractional float", ir.IRFloat(5.5), nil, false},
		{"string", ir.IRString("42"), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IntToString{}.Transform(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringToISO8601Date(t *testing.T) {
	want := time.Date(2017, 9, 10, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   string
	}{
		{"numeric offset", "2017-09-10T12:30:00+0000"},
		{"colon offset", "2017-09-10T14:30:00+02:00"},
		{"zulu", "2017-09-10T12:30:00Z"},
		{"gmt offset", "2017-09-10T13:30:00GMT+01:00"},
		{"milliseconds", "2017-09-10T12:30:00.000+0000"},
		{"milliseconds zulu", "2017-09-10T12:30:00.000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StringToISO8601Date{}.Transform(ir.IRString(tt.in))
			require.True(t, ok)
			ts, isTime := got.(ir.IRTime)
			require.True(t, isTime)
			assert.True(t, want.Equal(ts.Time()), "got %s", ts.Time())
			assert.Equal(t, time.Local, ts.Time().Location())
		})
	}
}

func TestStringToISO8601DateRejects(t *testing.T) {
	for _, in := range []ir.IRValue{
		ir.IRString("2017-09-10"),
		ir.IRString("2017-09-10T12:30:00"),
		ir.IRString("yesterday"),
		ir.IRInt(1504960200),
	} {
		_, ok := StringToISO8601Date{}.Transform(in)
		assert.False(t, ok, "%v", in)
	}
}

func TestSameSecond(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, SameSecond(base, base.Add(500*time.Millisecond)))
	assert.False(t, SameSecond(base, base.Add(time.Second)))
}

func decimalText(t *testing.T, v ir.IRValue) string {
	t.Helper()
	d, ok := v.(ir.IRDecimal)
	require.True(t, ok, "expected IRDecimal, got %T", v)
	return d.String()
}

func TestStringToDecimalAmericanEnglish(t *testing.T) {
	tr := StringToDecimal{Locale: language.AmericanEnglish}

	tests := []struct {
		in   string
		want string
	}{
		{"12.50", "12.50"},
		{"-3", "-3"},
		{"+0.5", "0.5"},
		{".25", "0.25"},
		{"1,234.5", "1234.5"},
		{"1,234,567", "1234567"},
		{" 7 ", "7"},
	}

	for _, tt := range tests {
		got, ok := tr.Transform(ir.IRString(tt.in))
		require.True(t, ok, tt.in)
		assert.Equal(t, tt.want, decimalText(t, got), tt.in)
	}
}

func TestStringToDecimalGerman(t *testing.T) {
	tr := StringToDecimal{Locale: language.MustParse("de-AT")}

	got, ok := tr.Transform(ir.IRString("1.234,56"))
	require.True(t, ok)
	assert.Equal(t, "1234.56", decimalText(t, got))

	// Not valid German grouping, so the American English fallback applies.
	got, ok = tr.Transform(ir.IRString("3.75"))
	require.True(t, ok)
	assert.Equal(t, "3.75", decimalText(t, got))
}

func TestStringToDecimalFrench(t *testing.T) {
	tr := StringToDecimal{Locale: language.French}

	got, ok := tr.Transform(ir.IRString("1\u202F234,5"))
	require.True(t, ok)
	assert.Equal(t, "1234.5", decimalText(t, got))
}

func TestStringToDecimalFailureIsAbsent(t *testing.T) {
	tr := StringToDecimal{Locale: language.AmericanEnglish}

	for _, in := range []ir.IRValue{
		ir.IRString("abc"),
		ir.IRString(""),
		ir.IRString("1,23"),
		ir.IRString("NaN"),
		ir.IRString("1e5"),
		ir.IRString("-"),
		ir.IRInt(5),
	} {
		_, ok := tr.Transform(in)
		assert.False(t, ok, "%v", in)
	}
}

func TestEnvironmentLocale(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_NUMERIC", "de_DE.UTF-8")
	t.Setenv("LANG", "fr_FR.UTF-8")
	assert.Equal(t, "de-DE", EnvironmentLocale().String())

	t.Setenv("LC_NUMERIC", "C")
	assert.Equal(t, "fr-FR", EnvironmentLocale().String())

	t.Setenv("LANG", "")
	assert.Equal(t, language.AmericanEnglish, EnvironmentLocale())
}

func TestStringToDecimalUsesEnvironment(t *testing.T) {
	t.Setenv("LC_ALL", "de_DE.UTF-8")

	got, ok := StringToDecimal{}.Transform(ir.IRString("2,5"))
	require.True(t, ok)
	assert.Equal(t, "2.5", decimalText(t, got))
}
