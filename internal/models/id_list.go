package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// IDList is an ordered list of entity IDs persisted as a JSON array.
// The head of the list is the most recently inserted ID.
type IDList []uint64

// Value implements driver.Valuer.
func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]uint64(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *IDList) Scan(src any) error {
	raw, err := scanBytes(src)
	if err != nil {
		return fmt.Errorf("scan id list: %w", err)
	}
	if len(raw) == 0 {
		*l = IDList{}
		return nil
	}
	var ids []uint64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("scan id list: %w", err)
	}
	*l = ids
	return nil
}

// IndexOf returns the position of id or -1.
func (l IDList) IndexOf(id uint64) int {
	for i, v := range l {
		if v == id {
			return i
		}
	}
	return -1
}

// Contains reports whether id is in the list.
func (l IDList) Contains(id uint64) bool {
	return l.IndexOf(id) >= 0
}

// Prepend returns a new list with id at the head.
func (l IDList) Prepend(id uint64) IDList {
	out := make(IDList, 0, len(l)+1)
	out = append(out, id)
	return append(out, l...)
}

// RemoveAt returns a new list without the element at index i.
func (l IDList) RemoveAt(i int) IDList {
	if i < 0 || i >= len(l) {
		return l
	}
	out := make(IDList, 0, len(l)-1)
	out = append(out, l[:i]...)
	return append(out, l[i+1:]...)
}

// Remove drops the first occurrence of id, if any.
func (l IDList) Remove(id uint64) IDList {
	return l.RemoveAt(l.IndexOf(id))
}

// StringList is an ordered list of strings persisted as a JSON array.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	raw, err := scanBytes(src)
	if err != nil {
		return fmt.Errorf("scan string list: %w", err)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("scan string list: %w", err)
	}
	*l = values
	return nil
}

func scanBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", src)
	}
}
