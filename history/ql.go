package history

import (
	"database/sql"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	_ "github.com/cznic/ql/driver"
)

// This file implements the history using the QL embedded database.

type qlHistory struct {
	db *sql.DB
}

var _ DB = &qlHistory{}

const qlHistoryInit = `
	CREATE TABLE IF NOT EXISTS history (
		package string,
		collection string,
		status int,
		location string,
		notes string,
		recorded time
	);
	CREATE INDEX IF NOT EXISTS historypackage ON history (package);
	CREATE INDEX IF NOT EXISTS historyrecorded ON history (recorded);
`

// each in-memory database gets its own name so they do not share tables
var memCount int64

// NewQl opens a QL history database. filename is the name of the file to
// save the database to. The filename "memory" means to keep everything in
// memory.
func NewQl(filename string) (DB, error) {
	var db *sql.DB
	var err error
	if filename == "memory" {
		name := fmt.Sprintf("history%d.db", atomic.AddInt64(&memCount, 1))
		db, err = sql.Open("ql-mem", name)
	} else {
		db, err = sql.Open("ql", filename)
	}
	if err == nil {
		_, err = performExec(db, qlHistoryInit)
	}
	if err != nil {
		log.Printf("Open QL: %s", err.Error())
		return nil, err
	}
	return &qlHistory{db: db}, nil
}

func (qh *qlHistory) Record(e Entry) error {
	const dbInsert = `INSERT INTO history VALUES (?1, ?2, ?3, ?4, ?5, ?6)`
	when := e.When
	if when.IsZero() {
		when = time.Now()
	}
	_, err := performExec(qh.db, dbInsert,
		e.Package, e.Collection, int64(e.Status), e.Location, e.Notes, when)
	return err
}

func (qh *qlHistory) Recent(n int) ([]Entry, error) {
	const query = `
		SELECT id(), package, collection, status, location, notes, recorded
		FROM history
		ORDER BY recorded DESC
		LIMIT %d`
	rows, err := qh.db.Query(fmt.Sprintf(query, n))
	if err != nil {
		return nil, err
	}
	return qlScan(rows)
}

func (qh *qlHistory) ForPackage(pkg string) ([]Entry, error) {
	const query = `
		SELECT id(), package, collection, status, location, notes, recorded
		FROM history
		WHERE package == ?1
		ORDER BY recorded DESC`
	rows, err := qh.db.Query(query, pkg)
	if err != nil {
		return nil, err
	}
	return qlScan(rows)
}

func (qh *qlHistory) Close() error {
	return qh.db.Close()
}

func qlScan(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	var result []Entry
	for rows.Next() {
		var e Entry
		var status int64
		err := rows.Scan(&e.ID, &e.Package, &e.Collection, &status, &e.Location, &e.Notes, &e.When)
		if err != nil {
			return nil, err
		}
		e.Status = int(status)
		result = append(result, e)
	}
	return result, rows.Err()
}

func performExec(db *sql.DB, query string, args ...interface{}) (sql.Result, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	var result sql.Result
	result, err = tx.Exec(query, args...)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	err = tx.Commit()
	return result, err
}
