package database

import (
	"strconv"
	"strings"
)

// Rebind converts `?` placeholders to the driver's native placeholder style.
// Repositories write queries once with `?`; PostgreSQL gets `$1..$n`.
// Literal question marks inside quoted strings are not supported in queries.
func Rebind(driver Driver, query string) string {
	if driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
