package repositories

import (
	"strings"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike экранирует спецсимволы LIKE, чтобы ввод пользователя искался буквально
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// likeAny добавляет "(lower(c1) LIKE ? OR lower(c2) LIKE ? ...)" для ключевого слова.
// LOWER с обеих сторон дает регистронезависимый поиск и в Postgres, и в SQLite.
func likeAny(db *gorm.DB, keyword string, columns ...string) *gorm.DB {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || len(columns) == 0 {
		return db
	}
	pattern := "%" + strings.ToLower(EscapeLike(keyword)) + "%"

	parts := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, "LOWER("+col+`) LIKE ? ESCAPE '\'`)
		args = append(args, pattern)
	}
	return db.Where("("+strings.Join(parts, " OR ")+")", args...)
}

func paginate(db *gorm.DB, page, pageSize int) *gorm.DB {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return db.Offset((page - 1) * pageSize).Limit(pageSize)
}

// hasTag ищет элемент в колонке text[]. SQLite хранит литерал массива как текст.
func hasTag(db *gorm.DB, column, tag string) *gorm.DB {
	if tag == "" {
		return db
	}
	if db.Dialector.Name() == "postgres" {
		return db.Where("? = ANY("+column+")", tag)
	}
	return likeAny(db, tag, column)
}
