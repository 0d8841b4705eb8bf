package storage

import "strings"

// likeEscaper escapes the LIKE wildcards so a search for "教1_101" matches
// that literal room. Queries pair it with ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// sanitizeSearchTerm turns user input into a literal LIKE fragment.
func sanitizeSearchTerm(term string) string {
	return likeEscaper.Replace(term)
}
