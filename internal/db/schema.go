package db

import (
	_ "embed"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// TypeTable names one of the two code lookup tables, they share a layout.
type TypeTable string

const (
	CASE_TYPES TypeTable = "case_types"
	ACT_TYPES  TypeTable = "act_types"
)
