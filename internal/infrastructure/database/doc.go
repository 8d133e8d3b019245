// Package database manages the SQLite run-history store: connection
// lifecycle, pragmas (WAL, busy timeout), and schema migrations embedded
// into the binary by the migrations package.
package database
