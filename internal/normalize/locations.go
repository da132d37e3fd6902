package normalize

import (
	"sort"
	"strings"

	"github.com/jobsift/jobsift/internal/job"
)

// cityTable maps lowercased city names (including common aliases) to their
// canonical city/country pair. Unlisted locations are preserved as free text
// by the normalizer; resolution is a quality signal, not a gate.
var cityTable = map[string]job.Location{
	"amsterdam":  {City: "Amsterdam", Country: "Netherlands"},
	"rotterdam":  {City: "Rotterdam", Country: "Netherlands"},
	"the hague":  {City: "The Hague", Country: "Netherlands"},
	"den haag":   {City: "The Hague", Country: "Netherlands"},
	"utrecht":    {City: "Utrecht", Country: "Netherlands"},
	"eindhoven":  {City: "Eindhoven", Country: "Netherlands"},
	"berlin":     {City: "Berlin", Country: "Germany"},
	"munich":     {City: "Munich", Country: "Germany"},
	"münchen":    {City: "Munich", Country: "Germany"},
	"hamburg":    {City: "Hamburg", Country: "Germany"},
	"frankfurt":  {City: "Frankfurt", Country: "Germany"},
	"cologne":    {City: "Cologne", Country: "Germany"},
	"köln":       {City: "Cologne", Country: "Germany"},
	"paris":      {City: "Paris", Country: "France"},
	"lyon":       {City: "Lyon", Country: "France"},
	"london":     {City: "London", Country: "United Kingdom"},
	"manchester": {City: "Manchester", Country: "United Kingdom"},
	"dublin":     {City: "Dublin", Country: "Ireland"},
	"madrid":     {City: "Madrid", Country: "Spain"},
	"barcelona":  {City: "Barcelona", Country: "Spain"},
	"lisbon":     {City: "Lisbon", Country: "Portugal"},
	"lisboa":     {City: "Lisbon", Country: "Portugal"},
	"porto":      {City: "Porto", Country: "Portugal"},
	"milan":      {City: "Milan", Country: "Italy"},
	"milano":     {City: "Milan", Country: "Italy"},
	"rome":       {City: "Rome", Country: "Italy"},
	"brussels":   {City: "Brussels", Country: "Belgium"},
	"copenhagen": {City: "Copenhagen", Country: "Denmark"},
	"stockholm":  {City: "Stockholm", Country: "Sweden"},
	"oslo":       {City: "Oslo", Country: "Norway"},
	"helsinki":   {City: "Helsinki", Country: "Finland"},
	"zurich":     {City: "Zurich", Country: "Switzerland"},
	"zürich":     {City: "Zurich", Country: "Switzerland"},
	"vienna":     {City: "Vienna", Country: "Austria"},
	"wien":       {City: "Vienna", Country: "Austria"},
	"prague":     {City: "Prague", Country: "Czechia"},
	"warsaw":     {City: "Warsaw", Country: "Poland"},
	"krakow":     {City: "Krakow", Country: "Poland"},
	"kraków":     {City: "Krakow", Country: "Poland"},
	"budapest":   {City: "Budapest", Country: "Hungary"},
	"tallinn":    {City: "Tallinn", Country: "Estonia"},
	"vilnius":    {City: "Vilnius", Country: "Lithuania"},
	"riga":       {City: "Riga", Country: "Latvia"},
	"athens":     {City: "Athens", Country: "Greece"},
}

var remoteMarkers = []string{"remote", "anywhere", "work from home", "fully distributed"}

// cityAliases holds the table keys in sorted order so the fallback substring
// scan resolves deterministically when a string mentions several cities.
var cityAliases = func() []string {
	aliases := make([]string, 0, len(cityTable))
	for alias := range cityTable {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}()

// ResolveLocation maps a free-text location to a canonical Location. The raw
// string is always preserved. Remote markers anywhere in the text set Remote;
// the first recognized city wins when several are listed.
func ResolveLocation(raw string) job.Location {
	loc := job.Location{Raw: strings.TrimSpace(raw)}
	lowered := strings.ToLower(loc.Raw)

	for _, marker := range remoteMarkers {
		if strings.Contains(lowered, marker) {
			loc.Remote = true
			break
		}
	}

	// Location strings commonly look like "Berlin, Germany", "Amsterdam or
	// remote", "Paris / Lyon". Try each comma/slash separated token.
	for _, token := range strings.FieldsFunc(lowered, func(r rune) bool {
		return r == ',' || r == '/' || r == '|'
	}) {
		token = strings.TrimSpace(strings.TrimSuffix(token, "or remote"))
		if resolved, ok := cityTable[token]; ok {
			loc.City = resolved.City
			loc.Country = resolved.Country
			return loc
		}
	}

	// Fall back to a substring scan for "City (hybrid)" style strings.
	for _, alias := range cityAliases {
		if strings.Contains(lowered, alias) {
			resolved := cityTable[alias]
			loc.City = resolved.City
			loc.Country = resolved.Country
			return loc
		}
	}

	return loc
}
