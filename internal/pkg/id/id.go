package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. Batch ids sort by issue time, so codes
// from the same IssueBatch call can be grouped and ordered by batch_id.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
