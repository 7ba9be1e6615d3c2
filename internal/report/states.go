package report

// stateCodes maps full state/province names to the 2-letter codes the
// choropleth rendering expects. The set is deliberately closed and small: it
// covers the states present in the source data. States outside the map keep
// an empty code and geographic rendering simply omits them; this is a known
// incompleteness, not a bug to silently fix.
var stateCodes = map[string]string{
	"Alaska":     "AK",
	"California": "CA",
	"Hawaii":     "HI",
	"Nevada":     "NV",
	"Oregon":     "OR",
	"Washington": "WA",
}

// StateCode returns the 2-letter code for a state, or "" when unmapped.
func StateCode(state string) string { return stateCodes[state] }
