package domain

import "strings"

// StateInfo describes one entry of the Indian GST state table.
type StateInfo struct {
	NumericCode string // first two GSTIN digits
	Abbrev      string
	Name        string
}

// gstStates is the fixed 36-entry GST state table. Codes 25 (merged into 26)
// and 28 (pre-division Andhra Pradesh) are retired and intentionally absent.
var gstStates = []StateInfo{
	{"01", "JK", "Jammu and Kashmir"},
	{"02", "HP", "Himachal Pradesh"},
	{"03", "PB", "Punjab"},
	{"04", "CH", "Chandigarh"},
	{"05", "UK", "Uttarakhand"},
	{"06", "HR", "Haryana"},
	{"07", "DL", "Delhi"},
	{"08", "RJ", "Rajasthan"},
	{"09", "UP", "Uttar Pradesh"},
	{"10", "BR", "Bihar"},
	{"11", "SK", "Sikkim"},
	{"12", "AR", "Arunachal Pradesh"},
	{"13", "NL", "Nagaland"},
	{"14", "MN", "Manipur"},
	{"15", "MZ", "Mizoram"},
	{"16", "TR", "Tripura"},
	{"17", "ML", "Meghalaya"},
	{"18", "AS", "Assam"},
	{"19", "WB", "West Bengal"},
	{"20", "JH", "Jharkhand"},
	{"21", "OD", "Odisha"},
	{"22", "CG", "Chhattisgarh"},
	{"23", "MP", "Madhya Pradesh"},
	{"24", "GJ", "Gujarat"},
	{"26", "DD", "Dadra and Nagar Haveli and Daman and Diu"},
	{"27", "MH", "Maharashtra"},
	{"29", "KA", "Karnataka"},
	{"30", "GA", "Goa"},
	{"31", "LD", "Lakshadweep"},
	{"32", "KL", "Kerala"},
	{"33", "TN", "Tamil Nadu"},
	{"34", "PY", "Puducherry"},
	{"35", "AN", "Andaman and Nicobar Islands"},
	{"36", "TS", "Telangana"},
	{"37", "AP", "Andhra Pradesh"},
	{"38", "LA", "Ladakh"},
}

var (
	statesByNumeric = map[string]StateInfo{}
	statesByAbbrev  = map[string]StateInfo{}
	statesByName    = map[string]StateInfo{}
)

func init() {
	for _, s := range gstStates {
		statesByNumeric[s.NumericCode] = s
		statesByAbbrev[s.Abbrev] = s
		statesByName[strings.ToUpper(s.Name)] = s
	}
}

// StateByGSTIN resolves the company state from the first two GSTIN digits.
func StateByGSTIN(gstin string) (StateInfo, bool) {
	if len(gstin) < 2 {
		return StateInfo{}, false
	}
	s, ok := statesByNumeric[gstin[:2]]
	return s, ok
}

// StateByAbbrev resolves a two-letter state abbreviation (case-insensitive).
func StateByAbbrev(abbrev string) (StateInfo, bool) {
	s, ok := statesByAbbrev[strings.ToUpper(strings.TrimSpace(abbrev))]
	return s, ok
}

// StateByName resolves a full state name (case-insensitive).
func StateByName(name string) (StateInfo, bool) {
	s, ok := statesByName[strings.ToUpper(strings.TrimSpace(name))]
	return s, ok
}

// NormalizeState maps a report's state value, which may be a full name or an
// abbreviation, to the canonical two-letter abbreviation. Returns false when
// the value is not in the table.
func NormalizeState(value string) (string, bool) {
	if s, ok := StateByName(value); ok {
		return s.Abbrev, true
	}
	if s, ok := StateByAbbrev(value); ok {
		return s.Abbrev, true
	}
	return "", false
}

// KnownStateAbbrev reports whether abbrev is in the fixed state set.
func KnownStateAbbrev(abbrev string) bool {
	_, ok := StateByAbbrev(abbrev)
	return ok
}
