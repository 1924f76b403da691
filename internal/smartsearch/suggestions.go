package smartsearch

import "strings"

var exampleQueries = []string{
	"lisinopril",
	"metformin 500mg",
	"lisinopril 10mg expiring next week",
	"expired medications sort by name",
	"expiring in 30 days sort by expiry",
	"ndc:0093-7214-01",
	"medications 10-50mg sort by strength ascending",
	"tablets at fridge expiring in 30 days",
	"amoxicillin strength: 250 newest first",
}

// ExampleQueries returns sample queries that cover every rule: names,
// expiration windows, strengths, NDC codes and sorting.
func ExampleQueries() []string {
	out := make([]string, len(exampleQueries))
	copy(out, exampleQueries)
	return out
}

type suggestionGroup struct {
	prefix      string
	suggestions []string
}

// Checked in order; the first prefix the input starts with wins.
var suggestionGroups = []suggestionGroup{
	{
		prefix: "exp",
		suggestions: []string{
			"expired",
			"expiring next week",
			"expiring in 30 days",
			"expiring in 60 days",
			"expiring in 90 days",
		},
	},
	{
		prefix: "loc",
		suggestions: []string{
			"location: fridge",
			"location: room temp",
			"location: cabinet",
			"location: pharmacy",
		},
	},
	{
		prefix: "ndc",
		suggestions: []string{
			"ndc:0093-7214-01",
			"ndc: ",
		},
	},
	{
		prefix: "sort",
		suggestions: []string{
			"sort by expiry",
			"sort by name",
			"sort by quantity",
			"sort by strength",
		},
	},
}

var strengthUnits = []string{"mg", "mcg", "ml"}

// SearchSuggestions returns canned completions for a partial query. Input
// starting with a digit gets strength completions built on the typed number;
// unrecognized input gets an empty slice.
func SearchSuggestions(partialInput string) []string {
	input := strings.ToLower(strings.TrimSpace(partialInput))
	if input == "" {
		return []string{}
	}

	if input[0] >= '0' && input[0] <= '9' {
		return strengthSuggestions(input)
	}

	for _, group := range suggestionGroups {
		if strings.HasPrefix(input, group.prefix) {
			out := make([]string, len(group.suggestions))
			copy(out, group.suggestions)
			return out
		}
	}
	return []string{}
}

func strengthSuggestions(input string) []string {
	end := 0
	for end < len(input) && (input[end] >= '0' && input[end] <= '9' || input[end] == '.') {
		end++
	}
	value := strings.TrimRight(input[:end], ".")

	out := make([]string, 0, len(strengthUnits)+2)
	for _, unit := range strengthUnits {
		out = append(out, value+unit)
	}
	out = append(out, value+"-"+value+"0mg", "strength: "+value)
	return out
}
