// Package all registers every storage backend with the storage factory.
// Binaries blank-import this package; library code depends only on the
// storage contract.
package all

import (
	_ "surveyagg/internal/storage/postgres"
	_ "surveyagg/internal/storage/sqlite"
)
