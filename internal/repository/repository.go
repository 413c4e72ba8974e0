// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a lower-cased LIKE pattern for a substring match.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// matchAny builds an OR of case-insensitive substring matches over columns,
// one placeholder per column. Postgres folds with ILIKE; sqlite's LOWER
// only folds ASCII, so non-ASCII matches there are case-sensitive.
func matchAny(db *gorm.DB, columns ...string) string {
	ilike := db.Dialector.Name() == "postgres"
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		if ilike {
			parts = append(parts, col+` ILIKE ? ESCAPE '\'`)
		} else {
			parts = append(parts, "LOWER("+col+`) LIKE ? ESCAPE '\'`)
		}
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}
