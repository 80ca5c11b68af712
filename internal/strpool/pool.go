// Package strpool interns the two kinds of strings an MMV file carries:
// short-lived metadata text (metric/indom help, instance names) which may be
// deduplicated, and per-metric string-value backing slots which must not be,
// since each one is addressed by identity, not content.
package strpool

import (
	"fmt"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// MaxLength is the longest payload a 256-byte String record can hold,
// leaving room for the trailing NUL: 255 bytes excluding the terminator.
const MaxLength = 255

// RecordSize is the fixed wire size of a String record.
const RecordSize = 256

// Entry is one interned string: its validated payload. Metadata strings and
// value slots share this type; the pool never looks a value slot up by
// content.
type Entry struct {
	Value string
}

// Pool interns metadata strings with content-addressed deduplication (keyed
// by xxhash of the payload, collisions resolved with a byte compare) and
// appends string-value slots verbatim, never deduplicated.
type Pool struct {
	metadata    []Entry
	byHash      map[uint64][]int // hash(metadata payload) -> indices into metadata
	valueSlots  []Entry
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{byHash: make(map[uint64][]int)}
}

func validate(s string) error {
	if len(s) > MaxLength {
		return fmt.Errorf("strpool: string of %d bytes exceeds %d byte limit", len(s), MaxLength)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("strpool: string is not valid UTF-8")
	}
	return nil
}

// Intern adds a metadata string, returning the index of an existing entry
// with identical content if one exists, or the index of a newly appended
// entry otherwise. An empty string still occupies a slot: help text offsets
// are always valid, even when blank.
func (p *Pool) Intern(s string) (int, error) {
	if err := validate(s); err != nil {
		return 0, err
	}

	h := xxhash.Sum64String(s)
	for _, idx := range p.byHash[h] {
		if p.metadata[idx].Value == s {
			return idx, nil
		}
	}

	idx := len(p.metadata)
	p.metadata = append(p.metadata, Entry{Value: s})
	p.byHash[h] = append(p.byHash[h], idx)
	return idx, nil
}

// AddValueSlot appends one string-value backing region (for a STRING
// metric's primary or shadow slot) with the given content, never
// deduplicating it against any other entry. It returns the slot's index
// among value slots only; ValueSlotRecordIndex converts it to an index
// within the combined string section once all metadata strings are interned.
func (p *Pool) AddValueSlot(content string) (int, error) {
	if err := validate(content); err != nil {
		return 0, err
	}
	idx := len(p.valueSlots)
	p.valueSlots = append(p.valueSlots, Entry{Value: content})
	return idx, nil
}

// MetadataCount returns the number of unique metadata strings interned.
func (p *Pool) MetadataCount() int { return len(p.metadata) }

// ValueSlotCount returns the number of string-value slots appended.
func (p *Pool) ValueSlotCount() int { return len(p.valueSlots) }

// Count returns the total number of String records the pool will emit.
func (p *Pool) Count() int { return len(p.metadata) + len(p.valueSlots) }

// Entries returns every interned string in wire order: metadata strings
// first (in first-intern order), then value slots (in AddValueSlot order).
func (p *Pool) Entries() []Entry {
	out := make([]Entry, 0, p.Count())
	out = append(out, p.metadata...)
	out = append(out, p.valueSlots...)
	return out
}

// ValueSlotRecordIndex converts a value-slot index (as returned by
// AddValueSlot) into its absolute record index within Entries().
func (p *Pool) ValueSlotRecordIndex(slotIdx int) int {
	return len(p.metadata) + slotIdx
}
