// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package dates formats publication dates as long localized dates
// (two-digit day, full month name, numeric year).
package dates

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// layout renders a date from its parts in one locale.
type layout struct {
	months [12]string
	format func(day, month string, year int) string
}

var layouts = map[language.Tag]layout{
	language.BrazilianPortuguese: {
		months: [12]string{
			"janeiro", "fevereiro", "março", "abril", "maio", "junho",
			"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
		},
		format: func(day, month string, year int) string {
			return fmt.Sprintf("%s de %s de %d", day, month, year)
		},
	},
	language.AmericanEnglish: {
		months: [12]string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
		format: func(day, month string, year int) string {
			return fmt.Sprintf("%s %s, %d", month, day, year)
		},
	},
}

var matcher = language.NewMatcher([]language.Tag{
	language.BrazilianPortuguese,
	language.AmericanEnglish,
})

// Formatter formats times in a single fixed locale and time zone.
type Formatter struct {
	tag    language.Tag
	layout layout
	loc    *time.Location
}

// NewFormatter resolves locale (a BCP 47 tag such as "pt-BR") to the closest
// supported layout. Unparseable tags are an error; unsupported but valid tags
// fall back to the best match. A nil loc means UTC.
func NewFormatter(locale string, loc *time.Location) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parsing locale %q: %w", locale, err)
	}

	_, index, _ := matcher.Match(tag)
	supported := []language.Tag{language.BrazilianPortuguese, language.AmericanEnglish}[index]

	if loc == nil {
		loc = time.UTC
	}

	return &Formatter{tag: supported, layout: layouts[supported], loc: loc}, nil
}

// Locale returns the resolved locale tag, e.g. "pt-BR".
func (f *Formatter) Locale() string {
	return f.tag.String()
}

// Format renders t as a long date, e.g. "02 de março de 2021" in pt-BR.
func (f *Formatter) Format(t time.Time) string {
	t = t.In(f.loc)
	day := fmt.Sprintf("%02d", t.Day())
	return f.layout.format(day, f.layout.months[t.Month()-1], t.Year())
}

// Parse reads a repository timestamp. Both RFC 3339 and the compact
// "+0000" offset form used by some content APIs are accepted.
func Parse(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05-0700", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
