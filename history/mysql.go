package history

import (
	"database/sql"
	"log"
	"time"

	// no _ in import mysql since we need mysql.NullTime
	"github.com/BurntSushi/migration"
	"github.com/go-sql-driver/mysql"
)

// This file implements the history using MySQL as a storage medium.

type mysqlHistory struct {
	db *sql.DB
}

var _ DB = &mysqlHistory{}

// List of migrations to perform. Add new ones to the end.
// DO NOT change the order of items already in this list.
var mysqlMigrations = []migration.Migrator{
	mysqlschema1,
	mysqlschema2,
}

// Adapt the schema versioning for MySQL

var mysqlVersioning = dbVersion{
	GetSQL:    `SELECT max(version) FROM migration_version`,
	SetSQL:    `INSERT INTO migration_version (version, applied) VALUES (?, now())`,
	CreateSQL: `CREATE TABLE migration_version (version INTEGER, applied datetime)`,
}

// NewMysql connects to a MySQL database, bringing its schema up to date.
func NewMysql(dial string) (DB, error) {
	db, err := migration.OpenWith(
		"mysql",
		dial,
		mysqlMigrations,
		mysqlVersioning.Get,
		mysqlVersioning.Set)
	if err != nil {
		log.Printf("Open Mysql: %s", err.Error())
		return nil, err
	}
	return &mysqlHistory{db: db}, nil
}

func (mh *mysqlHistory) Record(e Entry) error {
	const stmt = `INSERT INTO history (package, collection, status, location, notes, recorded) VALUES (?, ?, ?, ?, ?, ?)`
	when := e.When
	if when.IsZero() {
		when = time.Now()
	}
	_, err := mh.db.Exec(stmt, e.Package, e.Collection, e.Status, e.Location, e.Notes, when)
	return err
}

func (mh *mysqlHistory) Recent(n int) ([]Entry, error) {
	const query = `
		SELECT id, package, collection, status, location, notes, recorded
		FROM history
		ORDER BY recorded DESC, id DESC
		LIMIT ?`
	rows, err := mh.db.Query(query, n)
	if err != nil {
		return nil, err
	}
	return mysqlScan(rows)
}

func (mh *mysqlHistory) ForPackage(pkg string) ([]Entry, error) {
	const query = `
		SELECT id, package, collection, status, location, notes, recorded
		FROM history
		WHERE package = ?
		ORDER BY recorded DESC, id DESC`
	rows, err := mh.db.Query(query, pkg)
	if err != nil {
		return nil, err
	}
	return mysqlScan(rows)
}

func (mh *mysqlHistory) Close() error {
	return mh.db.Close()
}

func mysqlScan(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	var result []Entry
	for rows.Next() {
		var e Entry
		var when mysql.NullTime
		err := rows.Scan(&e.ID, &e.Package, &e.Collection, &e.Status, &e.Location, &e.Notes, &when)
		if err != nil {
			return nil, err
		}
		if when.Valid {
			e.When = when.Time
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func mysqlschema1(tx migration.LimitedTx) error {
	var s = []string{
		`CREATE TABLE IF NOT EXISTS history (
		id int PRIMARY KEY AUTO_INCREMENT,
		package varchar(64),
		collection varchar(1024),
		status int,
		location varchar(1024),
		recorded datetime)`,
	}
	return execlist(tx, s)
}

func mysqlschema2(tx migration.LimitedTx) error {
	var s = []string{
		`ALTER TABLE history ADD COLUMN notes text AFTER location`,
		`CREATE INDEX history_package ON history (package)`,
		`CREATE INDEX history_recorded ON history (recorded)`,
	}
	return execlist(tx, s)
}
