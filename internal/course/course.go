// Package course classifies the free-text course-type strings coming from
// the planning source into a closed set of known types.
package course

import "strings"

type Type int

const (
	Unknown Type = iota
	CoursTd
	CoursTp
	Projet
	Epreuve
	AutoAppr
)

// Raw course-type strings as the planning source emits them. Note that
// "est-epreuve" is lowercase with a dash on the wire.
const (
	rawCoursTd  = "COURS_TD"
	rawCoursTp  = "TP"
	rawProjet   = "PROJET"
	rawEpreuve  = "est-epreuve"
	rawAutoAppr = "AUTO_APPR"
)

// rawToType is keyed by the upper-cased raw string so lookups are
// case-insensitive.
var rawToType = map[string]Type{
	strings.ToUpper(rawCoursTd):  CoursTd,
	strings.ToUpper(rawCoursTp):  CoursTp,
	strings.ToUpper(rawProjet):   Projet,
	strings.ToUpper(rawEpreuve):  Epreuve,
	strings.ToUpper(rawAutoAppr): AutoAppr,
}

var typeToDisplay = map[Type]string{
	Unknown:  "Autre",
	CoursTd:  "TD",
	CoursTp:  "TP",
	Projet:   "Projet",
	Epreuve:  "Épreuve",
	AutoAppr: "Auto-apprentissage",
}

// Classify maps a raw course-type string to a Type. The first lookup uses
// the normalized form (trimmed, '-'/' ' replaced by '_', upper-cased); on a
// miss it retries with the upper-cased original string, so raw values whose
// dashes are significant ("est-epreuve") still match. Anything else is
// Unknown.
func Classify(raw string) Type {
	if strings.TrimSpace(raw) == "" {
		return Unknown
	}

	if t, ok := rawToType[normalize(raw)]; ok {
		return t
	}
	if t, ok := rawToType[strings.ToUpper(raw)]; ok {
		return t
	}
	return Unknown
}

func DisplayName(t Type) string {
	if d, ok := typeToDisplay[t]; ok {
		return d
	}
	return typeToDisplay[Unknown]
}

// DisplayNameFromRaw prefers the cleaned raw value over the generic "Autre"
// label when the type is unknown, so unrecognized-but-informative strings
// stay visible to the user.
func DisplayNameFromRaw(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return DisplayName(Unknown)
	}
	if t := Classify(raw); t != Unknown {
		return DisplayName(t)
	}
	return collapseSpaces(raw)
}

func normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	replaced := strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return '_'
		}
		return r
	}, trimmed)
	return strings.ToUpper(replaced)
}

func collapseSpaces(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
