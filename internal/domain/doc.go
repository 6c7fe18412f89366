// Package domain models CST location and snowfall history data and the
// tabular shapes it is flattened into.
//
// # Data Source
//
// Both pipelines talk to the CST API. Two endpoints are used:
//
//	GET /cst/locations/name-match?city=&state=&zipcode=
//	  Authorization: Bearer <key>
//	  → {"data": {"locations": [{"location_id", "city", "state", "zipcode"}, ...]}}
//
//	GET /snowtistics/history/events?api_key=&location_id=&start_season=&end_season=
//	  → {"data": {"events": [...], "sources": {...}, "sourcesBySeason": {...}}}
//
// The lookup endpoint authenticates with a bearer header while the history
// endpoint takes the key as a query parameter. Both are honored as-is.
//
// # Name Matching
//
// Address rows are matched by city, state, and zipcode together. Fields that
// are empty are left out of the query rather than sent blank. When the
// combined query returns no candidates the zipcode alone is tried. The first
// candidate wins; the API's ordering is never re-ranked.
//
// # History Payload Conventions
//
// Values in the history payload are loosely typed. Amounts may arrive as
// numbers or strings, nested measurements may be missing or null, and a
// source's own location_id may be absent. Every value is carried as [Text],
// which renders JSON scalars verbatim (numbers keep their literal form) and
// missing or null values as the empty string. An absent source location_id
// renders as "-1".
//
// The sources mapping is keyed by source name:
//
//	"sources": {"NOAA": {"location_id": 7, "city": "Tahoe", "state": "CA", "zipcode": "96150"}}
//
// Scalar city/state/zipcode keys sitting directly on that mapping (not inside
// a source) are the only location fields copied onto event rows. Event rows
// do not carry the per-source location.
//
// sourcesBySeason is read by season year ("2006" ... "2022"); each year's
// value becomes one cell of the coverage row.
//
// # Seasons
//
// History is requested for seasons [FirstSeason, LastSeason]. The coverage
// table always has one column per year in [FirstSeason, LastCoverageSeason].
package domain
