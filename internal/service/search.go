package service

import (
	"strings"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsCondition matches column against a case-insensitive substring.
// sqlite's LIKE only folds ASCII, so the column goes through unicode_lower
// (see database.SQLiteDriverName) and the pattern is lowercased in Go.
func containsCondition(db *gorm.DB, column string) string {
	if db.Dialector.Name() == "postgres" {
		return column + ` ILIKE ? ESCAPE '\'`
	}
	return `unicode_lower(` + column + `) LIKE ? ESCAPE '\'`
}

func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}
