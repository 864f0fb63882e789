// Package ids generates the time-ordered identifiers used for nodes, edges,
// and vectors throughout HelixDB.
//
// Ids are 128-bit values laid out so that lexicographic (byte-wise) ordering
// matches creation order: a 60-bit Gregorian timestamp occupies the most
// significant bits, followed by a version/variant nibble pair and 62 bits of
// randomness for uniqueness within the same timestamp tick. This mirrors the
// sortable-prefix property of UUID v6 without depending on a UUID package
// version that may or may not expose a NewV6 constructor (see DESIGN.md).
package ids

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// ID is a strongly-typed, time-ordered identifier. The underlying
// representation is google/uuid's 16-byte array type so ids parse, print,
// and round-trip through JSON using the same conventions as any other
// UUID-based Go service.
type ID = uuid.UUID

// Nil is the zero-value id. A zero id never identifies a live record.
var Nil ID = uuid.Nil

// gregorianOffset is the number of 100ns intervals between the Gregorian
// calendar epoch (1582-10-15) and the Unix epoch (1970-01-01), the same
// constant UUID v1/v6 generators use for their 60-bit timestamp field.
const gregorianOffset = 0x01B21DD213814000

// New generates a new time-ordered id. Ids generated at the same 100ns tick
// are distinguished by their random tail, so New is safe to call
// concurrently without coordination.
func New() ID {
	ts := uint64(time.Now().UnixNano())/100 + gregorianOffset
	ts &= (1 << 60) - 1 // keep 60 bits

	// Split the 60-bit timestamp the way UUID v6 does: the high 48 bits go
	// in verbatim (time_high/time_mid), then the version nibble, then the
	// low 12 bits (time_low) fill out the rest of byte 6 and all of byte 7.
	// Packing high48 and low12 from the same ts value (rather than
	// shifting ts left and overwriting byte 6's top nibble) keeps every
	// timestamp bit, so ids generated in the same ~25.6us tick never sort
	// out of order.
	high48 := ts >> 12
	low12 := ts & 0xFFF

	var b [16]byte
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], high48)
	copy(b[0:6], tsBuf[2:8])
	b[6] = byte(low12>>8) & 0x0F
	b[7] = byte(low12)

	if _, err := rand.Read(b[8:]); err != nil {
		// crypto/rand failing is fatal to the process; callers never see a
		// degraded-but-running id generator.
		panic("ids: failed to read random bytes: " + err.Error())
	}
	// Version nibble (6) in the top 4 bits of byte 6.
	b[6] |= 0x60
	// Variant bits (RFC 4122) in the top 2 bits of byte 8.
	b[8] = (b[8] & 0x3F) | 0x80

	id, err := uuid.FromBytes(b[:])
	if err != nil {
		panic("ids: invalid generated id: " + err.Error())
	}
	return id
}

// Parse parses the canonical string form of an id.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse parses s, panicking if it is not a valid id. Intended for tests
// and constant ids known at compile time.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil reports whether id is the zero value.
func IsNil(id ID) bool {
	return id == Nil
}
