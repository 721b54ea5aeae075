package domain

import (
	"regexp"
	"strings"
)

// Parameter codes recognized by the catalog.
const (
	ParamPH       = "pH"
	ParamBOD      = "BOD"
	ParamDO       = "DO"
	ParamTDS      = "TDS"
	ParamLead     = "Lead"
	ParamMercury  = "Mercury"
	ParamColiform = "Coliform"
	ParamNitrates = "Nitrates"
)

// Thresholds are the limits used to grade a reading. For pH, Safe and
// Moderate bound the acceptable range instead of being ceilings.
type Thresholds struct {
	Safe     float64
	Moderate float64
	High     float64
	Critical float64
}

// Parameter is a recognized water-quality parameter.
type Parameter struct {
	Code       string
	Name       string
	Unit       string
	Thresholds Thresholds
	// Aliases are upstream column names in priority order, lower case.
	Aliases []string
	// ProxyAliases are consulted only when no alias yields a value.
	ProxyAliases []string
}

// Catalog is the static registry of recognized parameters.
type Catalog struct {
	params []Parameter
	byCode map[string]int
}

// NewCatalog builds a catalog from params, preserving their order.
func NewCatalog(params []Parameter) *Catalog {
	c := &Catalog{params: params, byCode: make(map[string]int, len(params))}
	for i, p := range params {
		c.byCode[p.Code] = i
	}
	return c
}

// Parameters returns the catalog entries in registration order.
func (c *Catalog) Parameters() []Parameter {
	return c.params
}

// Lookup returns the parameter registered under code.
func (c *Catalog) Lookup(code string) (Parameter, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return Parameter{}, false
	}
	return c.params[i], true
}

// Codes returns every parameter code in registration order.
func (c *Catalog) Codes() []string {
	codes := make([]string, len(c.params))
	for i, p := range c.params {
		codes[i] = p.Code
	}
	return codes
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeParameterName case-folds name and collapses every run of
// separators into one space: "Total_Coliform (MPN/100ml)" becomes
// "total coliform mpn 100ml".
func normalizeParameterName(name string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(name), " "))
}

// nameRule maps a normalized free-text parameter name to a code.
type nameRule struct {
	code  string
	match func(n string) bool
}

func equalsOrPrefixed(words ...string) func(string) bool {
	return func(n string) bool {
		for _, w := range words {
			if n == w || strings.HasPrefix(n, w+" ") {
				return true
			}
		}
		return false
	}
}

func containsAny(subs ...string) func(string) bool {
	return func(n string) bool {
		for _, s := range subs {
			if strings.Contains(n, s) {
				return true
			}
		}
		return false
	}
}

func either(a, b func(string) bool) func(string) bool {
	return func(n string) bool { return a(n) || b(n) }
}

// Rules are checked in order; the first match wins.
var nameRules = []nameRule{
	{ParamColiform, containsAny("coliform")},
	{ParamPH, equalsOrPrefixed("ph", "p h")},
	{ParamBOD, either(containsAny("biochemical oxygen"), equalsOrPrefixed("bod", "b o d"))},
	{ParamDO, either(containsAny("dissolved oxygen"), equalsOrPrefixed("do", "d o"))},
	{ParamTDS, either(containsAny("dissolved solids"), equalsOrPrefixed("tds"))},
	{ParamNitrates, containsAny("nitrate")},
	{ParamMercury, either(containsAny("mercury"), equalsOrPrefixed("hg"))},
	{ParamLead, either(containsAny("lead"), equalsOrPrefixed("pb"))},
}

// ClassifyParameterName maps a free-text parameter name, as found in long
// format datasets, to a catalog code.
func (c *Catalog) ClassifyParameterName(name string) (string, bool) {
	n := normalizeParameterName(name)
	if n == "" {
		return "", false
	}
	for _, r := range nameRules {
		if r.match(n) {
			if _, ok := c.byCode[r.code]; ok {
				return r.code, true
			}
		}
	}
	return "", false
}

// DefaultCatalog returns the eight parameters monitored by the Central
// Pollution Control Board with the column spellings seen on data.gov.in.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Parameter{
		{
			Code: ParamPH, Name: "pH Level", Unit: "",
			Thresholds: Thresholds{Safe: 6.5, Moderate: 8.5, High: 9.5, Critical: 10.5},
			Aliases: []string{
				"ph", "ph-mean", "ph_mean", "ph__mean", "ph value", "ph_value",
				"p.h", "ph-max", "ph_max", "ph-min", "ph_min",
			},
		},
		{
			Code: ParamBOD, Name: "Biochemical Oxygen Demand", Unit: "mg/L",
			Thresholds: Thresholds{Safe: 3, Moderate: 6, High: 10, Critical: 15},
			Aliases: []string{
				"bod", "b.o.d", "b_o_d", "b.o.d.", "bod_mg_l", "bod (mg/l)", "bod_mg/l",
				"biochemical_oxygen_demand", "biochemical_oxygen_demand-mean",
				"biochemical_oxygen_demand__mg_l_-mean", "bod-mean", "bod_mean",
				"biochemical_oxygen_demand-max", "bod-max",
			},
		},
		{
			Code: ParamDO, Name: "Dissolved Oxygen", Unit: "mg/L",
			Thresholds: Thresholds{Safe: 6, Moderate: 4, High: 2, Critical: 1},
			Aliases: []string{
				"do", "d.o", "d.o.", "do_mg_l", "do (mg/l)", "dissolved_oxygen",
				"dissolved_oxygen-mean", "dissolved_oxygen__mg_l_-mean",
				"do-mean", "do_mean", "dissolved_oxygen-min", "do-min",
			},
		},
		{
			Code: ParamTDS, Name: "Total Dissolved Solids", Unit: "mg/L",
			Thresholds: Thresholds{Safe: 500, Moderate: 1000, High: 1500, Critical: 2000},
			Aliases: []string{
				"tds", "t.d.s", "tds_mg_l", "tds (mg/l)", "total_dissolved_solids",
				"total_dissolved_solids-mean", "total_dissolved_solids__mg_l_-mean",
				"tds-mean", "tds_mean",
			},
			ProxyAliases: []string{
				"conductivity", "conductivity-mean", "conductivity_mean",
				"conductivity__mhos_cm_-mean", "conductivity__µmhos_cm_-mean",
				"electrical_conductivity", "ec",
			},
		},
		{
			Code: ParamLead, Name: "Lead", Unit: "mg/L",
			Thresholds: Thresholds{Safe: 0.01, Moderate: 0.05, High: 0.1, Critical: 0.2},
			Aliases:    []string{"lead", "pb", "lead_mg_l", "lead (mg/l)", "lead-mean", "lead__mg_l_-mean"},
		},
		{
			Code: ParamMercury, Name: "Mercury", Unit: "mg/L",
			Thresholds: Thresholds{Safe: 0.001, Moderate: 0.005, High: 0.01, Critical: 0.02},
			Aliases:    []string{"mercury", "hg", "mercury_mg_l", "mercury (mg/l)", "mercury-mean", "mercury__mg_l_-mean"},
		},
		{
			Code: ParamColiform, Name: "Total Coliform", Unit: "MPN/100ml",
			Thresholds: Thresholds{Safe: 2.2, Moderate: 10, High: 50, Critical: 100},
			Aliases: []string{
				"total_coliform", "total coliform", "coliform", "total_coliform-mean",
				"total_coliform__mpn_100ml_-mean", "fecal_coliform", "faecal_coliform",
				"fecal_coliform-mean", "fecal_coliform__mpn_100ml_-mean",
			},
		},
		{
			Code: ParamNitrates, Name: "Nitrates", Unit: "mg/L",
			Thresholds: Thresholds{Safe: 45, Moderate: 100, High: 200, Critical: 300},
			Aliases: []string{
				"nitrate", "nitrates", "nitrate_n", "nitrate-n", "no3", "nitrate_mg_l",
				"nitrate_n_nitrite_n", "nitrate-n_+_nitrite-n__mg_l_-mean",
				"nitrate_n_+_nitrite_n-mean", "nitrate-mean",
			},
		},
	})
}
