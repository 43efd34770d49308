// Package campus holds the university's faculty and program catalogue.
package campus

import "sort"

// Programs maps each faculty code to the program codes it offers.
var Programs = map[string][]string{
	"FaCET":    {"BSIT", "BSCE", "BSMRS", "BSM", "BSITM"},
	"FALS":     {"BSES", "BSA", "BSBIO"},
	"FNAHS":    {"BSN"},
	"FTED":     {"BSED", "BEED"},
	"FGCE":     {"BSC"},
	"FBM":      {"BSBA", "BSHM"},
	"FHuSoCom": {"BSPolSci", "BSDC"},
}

// IsFaculty reports whether code names a known faculty.
func IsFaculty(code string) bool {
	_, ok := Programs[code]
	return ok
}

// IsProgram reports whether code names a program of any faculty.
func IsProgram(code string) bool {
	return FacultyOf(code) != ""
}

// Offers reports whether faculty offers program.
func Offers(faculty, program string) bool {
	for _, p := range Programs[faculty] {
		if p == program {
			return true
		}
	}
	return false
}

// FacultyOf returns the faculty offering program, or "" when unknown.
func FacultyOf(program string) string {
	for f, ps := range Programs {
		for _, p := range ps {
			if p == program {
				return f
			}
		}
	}
	return ""
}

// Faculties returns the faculty codes in a stable order.
func Faculties() []string {
	out := make([]string, 0, len(Programs))
	for f := range Programs {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
