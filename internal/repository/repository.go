// Package repository holds the Postgres persistence layer. Each entity gets
// an interface plus a pgx-backed implementation; services depend on the
// interfaces only.
package repository

import "strconv"

func itoa(n int) string {
	return strconv.Itoa(n)
}
