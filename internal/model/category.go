package model

import (
	"strings"
	"time"
)

// Category tags a subscription and, by copy, its articles.
type Category string

const (
	CategoryPolitics      Category = "POLITICS"
	CategoryTechnology    Category = "TECHNOLOGY"
	CategorySports        Category = "SPORTS"
	CategoryFinance       Category = "FINANCE"
	CategoryWorld         Category = "WORLD"
	CategoryGeneral       Category = "GENERAL"
	CategoryInvestigative Category = "INVESTIGATIVE"
	CategoryScience       Category = "SCIENCE"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryHealth        Category = "HEALTH"
	CategoryBusiness      Category = "BUSINESS"
	CategoryUnknown       Category = "UNKNOWN"
)

// AllCategories lists every known category in declaration order.
var AllCategories = []Category{
	CategoryPolitics, CategoryTechnology, CategorySports, CategoryFinance,
	CategoryWorld, CategoryGeneral, CategoryInvestigative, CategoryScience,
	CategoryEntertainment, CategoryHealth, CategoryBusiness, CategoryUnknown,
}

type categoryRule struct {
	match  func(s string) bool
	result Category
}

func containsAny(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
}

// Rule order matters: feed data stored by older versions relies on the
// earlier rules winning over more specific ones ("TECH & POLITICS" is TECHNOLOGY).
var categoryRules = []categoryRule{
	{containsAny("TECH"), CategoryTechnology},
	{containsAny("POLIT"), CategoryPolitics},
	{containsAny("SPORT"), CategorySports},
	{containsAny("FINAN", "ECON"), CategoryFinance},
	{containsAny("WORLD"), CategoryWorld},
	{containsAny("CIENCIA", "SCIENCE"), CategoryScience},
	{containsAny("SALUD", "HEALTH"), CategoryHealth},
	{func(s string) bool { return s == string(CategoryGeneral) }, CategoryGeneral},
}

// ParseCategory coerces free text into a Category.
func ParseCategory(value string) Category {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, r := range categoryRules {
		if r.match(normalized) {
			return r.result
		}
	}
	for _, c := range AllCategories {
		if string(c) == normalized {
			return c
		}
	}
	return CategoryUnknown
}

// ParseCategories maps a list of names, defaulting to GENERAL when empty.
func ParseCategories(values []string) []Category {
	out := make([]Category, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out = append(out, ParseCategory(v))
	}
	if len(out) == 0 {
		out = append(out, CategoryGeneral)
	}
	return out
}

// EditorialLine describes who runs a news outlet.
type EditorialLine string

const (
	EditorialMainstream  EditorialLine = "MAINSTREAM"
	EditorialIndependent EditorialLine = "INDEPENDENT"
	EditorialStateOwned  EditorialLine = "STATE_OWNED"
	EditorialUnknown     EditorialLine = "UNKNOWN"
)

// ParseEditorialLine returns EditorialUnknown for anything unrecognized.
func ParseEditorialLine(value string) EditorialLine {
	switch EditorialLine(strings.ToUpper(strings.TrimSpace(value))) {
	case EditorialMainstream:
		return EditorialMainstream
	case EditorialIndependent:
		return EditorialIndependent
	case EditorialStateOwned:
		return EditorialStateOwned
	}
	return EditorialUnknown
}

// RefreshInterval is the stored sync interval setting.
type RefreshInterval string

const (
	Refresh15Min  RefreshInterval = "15_min"
	Refresh30Min  RefreshInterval = "30_min"
	Refresh1Hour  RefreshInterval = "1_hour"
	RefreshDaily  RefreshInterval = "daily"
	DefaultRefresh                = Refresh30Min
)

// Duration converts the setting; unknown values fall back to 30 minutes.
func (r RefreshInterval) Duration() time.Duration {
	switch r {
	case Refresh15Min:
		return 15 * time.Minute
	case Refresh1Hour:
		return time.Hour
	case RefreshDaily:
		return 24 * time.Hour
	}
	return 30 * time.Minute
}
