// Package all registers every source backend with the source factory.
// Binaries blank-import it so config alone decides which backend runs.
package all

import (
	_ "salesdash/internal/source/csvdir"
	_ "salesdash/internal/source/mssql"
	_ "salesdash/internal/source/postgres"
	_ "salesdash/internal/source/sqlite"
)
