package migrations

import "embed"

// PostgresFS holds the ledger_events schema.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the purchases schema.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
