package domain

import (
	"bytes"
	"fmt"
	"net/mail"
	"sort"

	"github.com/google/uuid"
)

// ID identifies every stored record. Its canonical text form is the lowercase
// hyphenated UUID.
type ID = uuid.UUID

// NewID returns a fresh random identifier.
func NewID() ID {
	return uuid.New()
}

// ParseID accepts any textual UUID form (mixed case, braces, urn:uuid: prefix)
// and returns the normalized identifier, so two spellings of the same account
// compare equal.
func ParseID(s string) (ID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed id %q", ErrInvalidInput, s)
	}
	return id, nil
}

// SortIDs orders ids by their byte value and drops duplicates. Locks are always
// taken in this order.
func SortIDs(ids []ID) []ID {
	out := append([]ID(nil), ids...)
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	uniq := out[:0]
	for i, id := range out {
		if i > 0 && id == out[i-1] {
			continue
		}
		uniq = append(uniq, id)
	}
	return uniq
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
