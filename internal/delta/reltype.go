package delta

import "github.com/gowtham-rao/py-neo-umls-syncer-go/internal/biolink"

// cypherRelTypeFor delegates to biolink.CypherRelType; kept as a
// package-local alias so call sites in this package read as delta
// vocabulary rather than reaching into biolink directly everywhere.
func cypherRelTypeFor(predicate string) string {
	return biolink.CypherRelType(predicate)
}
