package stage

import (
	"regexp"
	"strings"
)

// Defaults used when no keyword matches.
const (
	DefaultJobLevel = "SOE-1"
	DefaultLocation = "Bangalore"
)

type keyword struct {
	re        *regexp.Regexp
	canonical string
}

func kw(pattern, canonical string) keyword {
	return keyword{regexp.MustCompile(`(?i)\b` + pattern + `\b`), canonical}
}

// managerRole only matches "manager" used as a level, as in "Manager
// position" or "senior manager role", never "the hiring manager".
const managerRole = `manager\s+(?:role|position|level|grade|opening)`

// jobLevels is checked in order; longer, more specific keys come first.
var jobLevels = []keyword{
	kw(`soe[- ]?1`, "SOE-1"),
	kw(`soe[- ]?2`, "SOE-2"),
	kw(`soe[- ]?3`, "SOE-3"),
	kw(`senior\s+`+managerRole, "Senior Manager"),
	kw(managerRole, "Manager"),
}

var locations = []keyword{
	kw(`bangalore`, "Bangalore"),
	kw(`bengaluru`, "Bangalore"),
	kw(`mumbai`, "Mumbai"),
	kw(`bombay`, "Mumbai"),
	kw(`delhi`, "Delhi"),
	kw(`hyderabad`, "Hyderabad"),
	kw(`pune`, "Pune"),
}

// resolve scans each text in order against table and returns the first
// canonical value found, or def.
func resolve(table []keyword, def string, texts ...string) string {
	for _, text := range texts {
		for _, k := range table {
			if k.re.MatchString(text) {
				return k.canonical
			}
		}
	}
	return def
}

// ResolveJobLevel returns the job level named in texts, checked in order.
func ResolveJobLevel(texts ...string) string {
	return resolve(jobLevels, DefaultJobLevel, texts...)
}

// ResolveLocation returns the location named in texts, checked in order.
func ResolveLocation(texts ...string) string {
	return resolve(locations, DefaultLocation, texts...)
}

var forNameRe = regexp.MustCompile(`\b[Ff]or\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\b`)

// NameFromRequest returns the capitalised name following "for" in text,
// or "Unknown".
func NameFromRequest(text string) string {
	if m := forNameRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return "Unknown"
}

// PlaceholderEmail derives an example.com address from a candidate name.
func PlaceholderEmail(name string) string {
	local := strings.Join(strings.Fields(strings.ToLower(name)), ".")
	if local == "" {
		local = "unknown"
	}
	return local + "@example.com"
}
