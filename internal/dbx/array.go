package dbx

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// IDArray scans a Postgres BIGINT[] delivered in text form ("{42,7}") into
// an []int64. Queries select relation columns as col::text so the driver
// never has to decode array OIDs itself.
//
// NULL means the column was absent from the row and is reported through
// Valid=false; the destination still receives an empty, non-nil slice.
// A present but empty array ("{}") sets Valid=true.
type IDArray struct {
	dst   *[]int64
	Valid bool
}

func NewIDArray(dst *[]int64) *IDArray {
	return &IDArray{dst: dst}
}

func (a *IDArray) Scan(src any) error {
	if src == nil {
		*a.dst = []int64{}
		a.Valid = false
		return nil
	}

	var ids []int64
	// pgtype.Map is not safe for concurrent use; a fresh one per scan is cheap.
	if err := pgtype.NewMap().SQLScanner(&ids).Scan(src); err != nil {
		return fmt.Errorf("scan bigint[]: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	*a.dst = ids
	a.Valid = true
	return nil
}
