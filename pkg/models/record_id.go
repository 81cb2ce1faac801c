package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/surrealdb/surrealrecord/pkg/constants"
)

// ContainerID names the store container (table, iblock) holding the
// elements of one content type.
type ContainerID string

// ContainerID returns c itself so that a bare ContainerID can act as a
// content type.
func (c ContainerID) ContainerID() ContainerID {
	return c
}

func (c ContainerID) IsZero() bool {
	return strings.TrimSpace(string(c)) == ""
}

// RecordID addresses one element: a container plus an identifier within it.
type RecordID struct {
	Container ContainerID
	ID        any
}

func NewRecordID(container ContainerID, id any) RecordID {
	return RecordID{Container: container, ID: id}
}

// ParseRecordID parses the "container:id" form produced by String.
// Identifiers made of digits only are returned as int64.
func ParseRecordID(s string) (RecordID, error) {
	container, id, ok := strings.Cut(s, ":")
	if !ok || container == "" || id == "" {
		return RecordID{}, fmt.Errorf("%w: expected format is 'container:id', got %q", constants.ErrConstruction, s)
	}
	return RecordID{Container: ContainerID(container), ID: ParseIDString(id)}, nil
}

// ParseIDString turns a textual identifier into int64 when it is purely
// numeric, leaving it as a string otherwise.
func ParseIDString(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

// ValidateID checks an element identifier.
// A nil id is accepted and reported as absent; present ids must be a
// non-empty string or a positive integer.
func ValidateID(id any) (present bool, err error) {
	switch v := id.(type) {
	case nil:
		return false, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return false, fmt.Errorf("%w: empty string", constants.ErrConstruction)
		}
	case int:
		return checkPositive(int64(v))
	case int8:
		return checkPositive(int64(v))
	case int16:
		return checkPositive(int64(v))
	case int32:
		return checkPositive(int64(v))
	case int64:
		return checkPositive(v)
	case uint, uint8, uint16, uint32, uint64:
		if fmt.Sprint(v) == "0" {
			return false, fmt.Errorf("%w: zero", constants.ErrConstruction)
		}
	default:
		return false, fmt.Errorf("%w: unsupported type %T", constants.ErrConstruction, id)
	}
	return true, nil
}

func checkPositive(n int64) (bool, error) {
	if n <= 0 {
		return false, fmt.Errorf("%w: %d is not positive", constants.ErrConstruction, n)
	}
	return true, nil
}

// Key is the canonical textual form of the identifier, used by stores
// that key elements by string.
func (r RecordID) Key() string {
	return fmt.Sprint(r.ID)
}

func (r RecordID) IsZero() bool {
	return r.Container.IsZero() || r.ID == nil
}

func (r RecordID) String() string {
	return fmt.Sprintf("%s:%v", r.Container, r.ID)
}

func (r RecordID) MarshalCBOR() ([]byte, error) {
	return getCborEncoder().Marshal(cbor.Tag{
		Number:  RecordIDTag,
		Content: []any{string(r.Container), r.ID},
	})
}

func (r *RecordID) UnmarshalCBOR(data []byte) error {
	var tag cbor.Tag
	if err := getCborDecoder().Unmarshal(data, &tag); err != nil {
		return err
	}
	if tag.Number != RecordIDTag {
		return fmt.Errorf("unexpected cbor tag %d for record id", tag.Number)
	}

	content, ok := tag.Content.([]any)
	if !ok || len(content) != 2 {
		return fmt.Errorf("invalid record id content: %v", tag.Content)
	}
	container, ok := content[0].(string)
	if !ok {
		return fmt.Errorf("invalid record id container: %v", content[0])
	}

	r.Container = ContainerID(container)
	r.ID = content[1]
	return nil
}
