package carrier

// Region is a logical grouping used to select which adapter and credential
// set handles a shipment, derived from the destination country or, for
// webhooks, the carrier identifier.
type Region string

const (
	RegionIN Region = "IN"
	RegionNA Region = "NA"
	RegionEU Region = "EU"
)

// HomeRegion is the fallback for unmapped countries and carriers. Checkout
// must never block on an unrecognized country, so resolution is total.
const HomeRegion = RegionIN

// countryRegions maps ISO 3166-1 alpha-2 destination countries to regions.
// A new country is a config addition here, not a code change.
var countryRegions = map[string]Region{
	"IN": RegionIN,
	"LK": RegionIN,
	"BD": RegionIN,
	"NP": RegionIN,

	"US": RegionNA,
	"CA": RegionNA,
	"MX": RegionNA,

	"GB": RegionEU,
	"DE": RegionEU,
	"FR": RegionEU,
	"IT": RegionEU,
	"ES": RegionEU,
	"NL": RegionEU,
	"BE": RegionEU,
	"PL": RegionEU,
	"SE": RegionEU,
	"IE": RegionEU,
}

// carrierRegions maps carrier identifiers to the region whose configuration
// (credentials, webhook secret) governs them.
var carrierRegions = map[string]Region{
	"shiprocket": RegionIN,
	"shippo":     RegionNA,
	"dhl":        RegionEU,
}

// ResolveDestination maps a destination country code to a shipping region.
// Unmapped countries fall back to the home region.
func ResolveDestination(countryCode string) Region {
	if r, ok := countryRegions[countryCode]; ok {
		return r
	}
	return HomeRegion
}

// ResolveCarrier maps a carrier identifier to its region. Unmapped carriers
// fall back to the home region; callers that care about onboarding gaps
// should check KnownCarrier first.
func ResolveCarrier(carrierID string) Region {
	if r, ok := carrierRegions[carrierID]; ok {
		return r
	}
	return HomeRegion
}

// KnownCarrier reports whether the carrier identifier has an explicit region
// mapping.
func KnownCarrier(carrierID string) bool {
	_, ok := carrierRegions[carrierID]
	return ok
}
