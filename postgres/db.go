package postgres

import (
	"errors"
	"fmt"

	usertoken "github.com/tokenmarket/usertoken"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var safeGORMSession = &gorm.Session{}

type DB struct {
	// *gorm.DB's methods are generally unsafe to use.
	// Specifically, some *gorm.DB methods are not thread-safe
	// and mutate the state of the *gorm.DB backing DB.
	//
	// If a *gorm.DB method calls *gorm.DB.getInstance,
	// this appears to render a method "safe" since it creates a new pointer.
	//
	// If a *gorm.DB method does not, be aware.
	// One solution is to use *gorm.DB.Session to force a clean pointer.
	db *gorm.DB
}

// NewDB constructs a *DB from a *gorm.DB.
func NewDB(db *gorm.DB) *DB { return &DB{db: db} }

// DB exposes the underlying *gorm.DB backing DB.
//
// NB: use in exceptional circumstances only.
func (db *DB) DB() *gorm.DB { return db.db }

// Debug prints the current query to the logger.
func (db *DB) Debug() *DB { return &DB{db.db.Debug()} }

// **************************************************************************
// FINISHER METHODS
//
// These methods close out a current query, executing it.
// They return any errors occurring within the query chain
// or when executing the query.
// **************************************************************************

// Count returns the number of records matching the current query or an error.
func (db *DB) Count() (int64, error) {
	if db.db.Error != nil {
		return 0, db.db.Error
	}

	var count int64
	if err := db.db.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: %s", usertoken.ErrUnexpected, err)
	}

	return count, nil
}

// Create inserts value into the database, updating value with new data
// yielding from that insertion.
// Value is almost always a pointer to a struct that is a database table.
//
// If value violates a unique constraint defined by the database, ErrExists returns.
func (db *DB) Create(value interface{}) error {
	if db.db.Error != nil {
		return db.db.Error
	}

	err := db.db.Session(&gorm.Session{FullSaveAssociations: false}).Create(value).Error
	switch {
	case err == nil:
		return nil

	case errUniqViolation.MatchString(err.Error()):
		return fmt.Errorf("%w: %s", usertoken.ErrExists, err)

	default:
		return fmt.Errorf("%w: failed creating %T: %s", usertoken.ErrUnexpected, value, err)
	}
}

// Find retrieves all records matching the current query
// and stores them in dest.
//
// If no matches are found, Find returns ErrNotFound.
func (db *DB) Find(dest interface{}) error {
	if db.db.Error != nil {
		return db.db.Error
	}

	res := db.db.Find(dest)
	if err := res.Error; err != nil {
		if errSQLSyntax.MatchString(err.Error()) {
			return fmt.Errorf("%w: %s", usertoken.ErrNotValid, err)
		}

		return fmt.Errorf("%w: %s", usertoken.ErrUnexpected, err)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("%w", usertoken.ErrNotFound)
	}

	return nil
}

// First retrieves a single record from the database matching the query
// and stores it in dest.
//
// If no matches are found, First returns ErrNotFound.
func (db *DB) First(dest interface{}) error {
	if db.db.Error != nil {
		return db.db.Error
	}

	err := db.db.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w", usertoken.ErrNotFound)
	}

	if err != nil && errSQLSyntax.MatchString(err.Error()) {
		return fmt.Errorf("%w: %s", usertoken.ErrNotValid, err)
	}

	if err != nil {
		return fmt.Errorf("%w: %s", usertoken.ErrUnexpected, err)
	}

	return nil
}

// Exec executes SQL query sql, passing values to it.
//
// Exec does not write any data resulting from the query into Go values.
func (db *DB) Exec(sql string, values ...interface{}) error {
	if db.db.Error != nil {
		return db.db.Error
	}

	if err := db.db.Exec(sql, values...).Error; err != nil {
		return fmt.Errorf("%w: %s", usertoken.ErrUnexpected, err)
	}

	return nil
}

// Upsert inserts value, or, upon conflicting with an existing record on
// conflictCol, overwrites that record's updateCols instead.
// The statement executes atomically in the database; concurrent upserts on
// the same key serialize there, last write winning.
func (db *DB) Upsert(value interface{}, conflictCol string, updateCols []string) error {
	if db.db.Error != nil {
		return db.db.Error
	}

	err := db.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: conflictCol}},
		DoUpdates: clause.AssignmentColumns(updateCols),
	}).Create(value).Error
	if err != nil {
		return fmt.Errorf("%w: failed upserting %T: %s", usertoken.ErrUnexpected, value, err)
	}

	return nil
}

// **************************************************************************
// QUERY BUILDING METHODS
//
// Query building methods initiate a query and then add clauses to it
// until a finisher method is called.
// **************************************************************************

// Limit applies a LIMIT clause to the current query.
func (db *DB) Limit(limit int) *DB {
	// GORM interprets negatives by not applying a LIMIT clause.
	// PostgreSQL errors on negative numbers, so mirror PostgreSQL.
	if limit < 0 {
		gdb := db.DB().Session(safeGORMSession)
		_ = gdb.AddError(fmt.Errorf("%w: limit must not be negative", usertoken.ErrNotValid))
		return &DB{db: gdb}
	}

	return &DB{db: db.db.Limit(limit)}
}

// Model declares the table used for the query,
// computing its name from the type of model.
func (db *DB) Model(model interface{}) *DB {
	return &DB{db: db.db.Model(model)}
}

// Offset applies an OFFSET clause to the current query.
func (db *DB) Offset(offset int) *DB {
	if offset < 0 {
		gdb := db.DB().Session(safeGORMSession)
		_ = gdb.AddError(fmt.Errorf("%w: offset must not be negative", usertoken.ErrNotValid))
		return &DB{db: gdb}
	}

	return &DB{db: db.db.Offset(offset)}
}

// Or applies an OR clause to the current query.
func (db *DB) Or(query interface{}, args ...interface{}) *DB {
	return &DB{db: db.db.Or(query, args...)}
}

// Order applies an ORDER BY clause to the current query.
func (db *DB) Order(order string) *DB { return &DB{db: db.db.Order(order)} }

// Where applies the query fragment to the current query
// as a WHERE or AND clause.
func (db *DB) Where(query interface{}, args ...interface{}) *DB {
	return &DB{db: db.db.Where(query, args...)}
}
