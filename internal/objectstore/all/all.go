// Package all registers every objectstore backend with the factory.
// Binaries import it for side effects; config selects the kind at runtime.
package all

import (
	_ "sheetmerge/internal/objectstore/filestore"
	_ "sheetmerge/internal/objectstore/pgstore"
	_ "sheetmerge/internal/objectstore/s3store"
	_ "sheetmerge/internal/objectstore/sqlstore"
)
