package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Dialect names as reported by the gorm dialector.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DialectName reports the dialect of conn, or "" for a nil connection.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// IsSQLite reports whether conn runs on SQLite.
func IsSQLite(conn *gorm.DB) bool {
	return DialectName(conn) == DialectSQLite
}

// CaseInsensitiveLikeExpr builds a case-insensitive LIKE condition for
// column with one placeholder. SQLite has no ILIKE, so the bound pattern
// must be lowered with NormalizeLikePattern to match the LOWER() side.
func CaseInsensitiveLikeExpr(conn *gorm.DB, column string) string {
	if IsSQLite(conn) {
		return "LOWER(" + column + ") LIKE ?"
	}
	return column + " ILIKE ?"
}

// NormalizeLikePattern lowers pattern on SQLite; Postgres ILIKE handles
// case folding itself.
func NormalizeLikePattern(conn *gorm.DB, pattern string) string {
	if IsSQLite(conn) {
		return strings.ToLower(pattern)
	}
	return pattern
}

// JSONExtractTextExpr builds an expression extracting key from a JSON
// column as text. The admin request search uses it to match step detail
// fields, for example the tracking number recorded at return shipping.
func JSONExtractTextExpr(conn *gorm.DB, column, key string) string {
	if IsSQLite(conn) {
		return fmt.Sprintf("json_extract(%s, '$.%s')", column, key)
	}
	return fmt.Sprintf("%s->>'%s'", column, key)
}
