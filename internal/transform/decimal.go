package transform

import (
	"os"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/language"

	"github.com/roach88/entsync/internal/ir"
)

// numberFormat holds the separators a locale uses when writing numbers.
type numberFormat struct {
	tag     language.Tag
	decimal string
	groups  []string
}

var numberFormats = []numberFormat{
	{language.AmericanEnglish, ".", []string{","}},
	{language.BritishEnglish, ".", []string{","}},
	{language.Japanese, ".", []string{","}},
	{language.Chinese, ".", []string{","}},
	{language.Korean, ".", []string{","}},
	{language.German, ",", []string{"."}},
	{language.Dutch, ",", []string{"."}},
	{language.Italian, ",", []string{"."}},
	{language.Spanish, ",", []string{"."}},
	{language.Portuguese, ",", []string{"."}},
	{language.Danish, ",", []string{"."}},
	{language.Turkish, ",", []string{"."}},
	{language.French, ",", []string{"\u202F", "\u00A0", " "}},
	{language.Russian, ",", []string{"\u00A0", " "}},
	{language.Polish, ",", []string{"\u00A0", " "}},
	{language.Swedish, ",", []string{"\u00A0", " "}},
	{language.Finnish, ",", []string{"\u00A0", " "}},
	{language.Norwegian, ",", []string{"\u00A0", " "}},
	{language.Czech, ",", []string{"\u00A0", " "}},
}

var localeMatcher = func() language.Matcher {
	tags := make([]language.Tag, len(numberFormats))
	for i, f := range numberFormats {
		tags[i] = f.tag
	}
	return language.NewMatcher(tags)
}()

// formatFor returns the number format closest to tag, falling back to
// American English when nothing matches.
func formatFor(tag language.Tag) numberFormat {
	_, idx, conf := localeMatcher.Match(tag)
	if conf == language.No {
		return numberFormats[0]
	}
	return numberFormats[idx]
}

// EnvironmentLocale returns the locale named by LC_ALL, LC_NUMERIC or LANG,
// in that order. POSIX values like "de_DE.UTF-8" are accepted.
func EnvironmentLocale() language.Tag {
	for _, name := range []string{"LC_ALL", "LC_NUMERIC", "LANG"} {
		v := os.Getenv(name)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		if tag, err := language.Parse(strings.ReplaceAll(v, "_", "-")); err == nil {
			return tag
		}
	}
	return language.AmericanEnglish
}

// StringToDecimal parses a localized number string into an
// arbitrary-precision decimal. The string is read with the conventions of
// Locale (the environment locale when unset) and then with American
// English ones.
type StringToDecimal struct {
	Locale language.Tag
}

// Transform implements Transformer.
func (t StringToDecimal) Transform(v ir.IRValue) (ir.IRValue, bool) {
	s, ok := v.(ir.IRString)
	if !ok {
		return nil, false
	}

	tag := t.Locale
	if tag == language.Und {
		tag = EnvironmentLocale()
	}

	primary := formatFor(tag)
	if d, ok := parseDecimal(string(s), primary); ok {
		return ir.NewIRDecimal(d), true
	}
	if primary.tag != language.AmericanEnglish {
		if d, ok := parseDecimal(string(s), numberFormats[0]); ok {
			return ir.NewIRDecimal(d), true
		}
	}
	return nil, false
}

// parseDecimal accepts an optional sign, digits optionally grouped in
// threes, and an optional fraction.
func parseDecimal(s string, f numberFormat) (*apd.Decimal, bool) {
	s = strings.TrimSpace(s)

	sign := ""
	switch {
	case strings.HasPrefix(s, "-"):
		sign, s = "-", s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, f.decimal)
	if intPart == "" && fracPart == "" {
		return nil, false
	}
	if !allDigits(fracPart) {
		return nil, false
	}

	digits, ok := ungroup(intPart, f.groups)
	if !ok {
		return nil, false
	}
	if digits == "" {
		digits = "0"
	}

	text := sign + digits
	if fracPart != "" {
		text += "." + fracPart
	}

	d, _, err := apd.NewFromString(text)
	if err != nil || d.Form != apd.Finite {
		return nil, false
	}
	return d, true
}

// ungroup removes group separators from s, requiring well-formed groups of
// three digits after the first.
func ungroup(s string, groups []string) (string, bool) {
	for _, sep := range groups {
		if !strings.Contains(s, sep) {
			continue
		}
		parts := strings.Split(s, sep)
		if len(parts[0]) == 0 || len(parts[0]) > 3 || !allDigits(parts[0]) {
			return "", false
		}
		for _, p := range parts[1:] {
			if len(p) != 3 || !allDigits(p) {
				return "", false
			}
		}
		return strings.Join(parts, ""), true
	}

	if !allDigits(s) {
		return "", false
	}
	return s, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
