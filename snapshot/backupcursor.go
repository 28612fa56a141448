package snapshot

import (
	"github.com/fulldump/snaptable/sidetable"
	"github.com/fulldump/snaptable/table"
)

// backupCursor adapts sidetable.Iterator to the same Next() shape as
// liveCursor so Context.Advance can drive either phase identically.
type backupCursor struct {
	it *sidetable.Iterator
}

func (c *backupCursor) Next() (*table.Tuple, bool) {
	return c.it.Next()
}
