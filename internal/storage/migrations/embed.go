package migrations

import "embed"

// Schema files ship inside the binary so both entrypoints can bring a
// fresh database up without a source checkout.

//go:embed postgres/*.sql
var PostgresFS embed.FS

//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
