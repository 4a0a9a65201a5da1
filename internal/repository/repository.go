package repository

import (
	"strings"

	"gorm.io/gorm"
)

// Repository aggregates every repository.
type Repository struct {
	User       UserRepository
	Location   LocationRepository
	Department DepartmentRepository
}

// NewRepository builds the aggregate over one connection pool.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:       NewUserRepo(db),
		Location:   NewLocationRepo(db),
		Department: NewDepartmentRepo(db),
	}
}

// GroupCount is one bucket of a GROUP BY count.
type GroupCount struct {
	Key   string
	Count int64
}

// departmentScope matches rows whose free-text department column names
// dept, case-insensitively. Users and locations reference departments by
// name only; this is the single place that match is expressed.
func departmentScope(column, dept string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER("+column+") = LOWER(?)", strings.TrimSpace(dept))
	}
}

// searchScope ORs a case-insensitive substring match across columns.
func searchScope(term string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		term = strings.TrimSpace(term)
		if term == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + escapeLike(term) + "%"
		clauses := make([]string, len(columns))
		args := make([]interface{}, len(columns))
		for i, c := range columns {
			clauses[i] = c + " ILIKE ?"
			args[i] = pattern
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
}

// pageScope applies offset/limit. A non-positive limit returns every row.
func pageScope(offset, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Offset(offset).Limit(limit)
	}
}
