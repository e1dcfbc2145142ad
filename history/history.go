// Package history records every deposit attempt so the command line tool can
// show what was sent where and what the server answered. Two backends exist:
// an embedded QL database, which is good for a single user, and MySQL.
package history

import (
	"log"
	"time"

	"github.com/BurntSushi/migration"
)

// An Entry is one deposit attempt.
type Entry struct {
	ID         int64
	Package    string // outbox id, or empty if the package was never saved
	Collection string // deposit URL
	Status     int    // HTTP status, or 0 if no response was received
	Location   string // Location header of a successful deposit
	Notes      string
	When       time.Time
}

// Succeeded is true if the server accepted the deposit.
func (e Entry) Succeeded() bool {
	return e.Status >= 200 && e.Status < 300
}

// DB is the interface the history backends satisfy. Entries are returned
// newest first.
type DB interface {
	Record(e Entry) error
	Recent(n int) ([]Entry, error)
	ForPackage(pkg string) ([]Entry, error)
	Close() error
}

// we need to adapt the migration version functions to work with MySQL and QL
// This code is slightly modified from github.com/BurntSushi/migration

type dbVersion struct {
	// SQL to get the version of this db, returns one row and one column
	GetSQL string
	// SQL to insert a new version of this db. takes one parameter, the new
	// version
	SetSQL string
	// the SQL to create the version table for this db
	CreateSQL string
}

func (d dbVersion) Get(tx migration.LimitedTx) (int, error) {
	var version int
	r := tx.QueryRow(d.GetSQL)
	if err := r.Scan(&version); err != nil {
		// we assume error means there is no migration table
		log.Println(err.Error())
		return 0, nil
	}
	return version, nil
}

func (d dbVersion) Set(tx migration.LimitedTx, version int) error {
	if _, err := tx.Exec(d.SetSQL, version); err != nil {
		if _, err := tx.Exec(d.CreateSQL); err != nil {
			return err
		}
		_, err = tx.Exec(d.SetSQL, version)
		return err
	}
	return nil
}

func execlist(tx migration.LimitedTx, stmts []string) error {
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
