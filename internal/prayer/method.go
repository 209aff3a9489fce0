package prayer

import (
	"fmt"
	"strings"
)

// Method is a named astronomical convention for computing prayer times.
// The set is closed: adding a method means adding both the constant and its
// numeric id in apiIDs (the id the computation API expects).
type Method string

const (
	MethodKarachi Method = "KARACHI" // University of Islamic Sciences, Karachi
	MethodISNA    Method = "ISNA"    // Islamic Society of North America
	MethodMWL     Method = "MWL"     // Muslim World League
	MethodEgypt   Method = "EGYPT"   // Egyptian General Authority of Survey
	MethodMakkah  Method = "MAKKAH"  // Umm Al-Qura University, Makkah
	MethodTehran  Method = "TEHRAN"  // Institute of Geophysics, University of Tehran
	MethodJafari  Method = "JAFARI"  // Shia Ithna-Ashari, Leva Institute, Qum
)

// DefaultMethod is used when no method has been configured.
const DefaultMethod = MethodKarachi

var apiIDs = map[Method]int{
	MethodKarachi: 1,
	MethodISNA:    2,
	MethodMWL:     3,
	MethodMakkah:  4,
	MethodEgypt:   5,
	MethodTehran:  7,
	MethodJafari:  0,
}

var displayNames = map[Method]string{
	MethodKarachi: "Karachi",
	MethodISNA:    "ISNA",
	MethodMWL:     "Muslim World League",
	MethodEgypt:   "Egypt",
	MethodMakkah:  "Makkah",
	MethodTehran:  "Tehran",
	MethodJafari:  "Jafari",
}

// Methods returns all supported calculation methods in display order.
func Methods() []Method {
	return []Method{MethodKarachi, MethodISNA, MethodMWL, MethodEgypt, MethodMakkah, MethodTehran, MethodJafari}
}

// ParseMethod validates a method string (case-insensitive).
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := apiIDs[m]; !ok {
		return "", fmt.Errorf("unknown calculation method %q", s)
	}
	return m, nil
}

// APIID returns the numeric id the computation API expects for m.
func (m Method) APIID() int {
	return apiIDs[m]
}

// DisplayName returns the human-readable name of the method.
func (m Method) DisplayName() string {
	if name, ok := displayNames[m]; ok {
		return name
	}
	return string(m)
}

// Valid reports whether m is one of the supported methods.
func (m Method) Valid() bool {
	_, ok := apiIDs[m]
	return ok
}
