// Package db embeds the SQL schema for the order tables.
package db

import _ "embed"

// Schema holds the DDL for the order aggregate tables, applied at startup.
//
//go:embed migrations/001_schema.sql
var Schema string
