package stringutil

import (
	"strings"
)

// KeyValue is a NAME=VALUE pair.
type KeyValue string

func (kv KeyValue) Key() string {
	key, _, _ := strings.Cut(string(kv), "=")
	return key
}

func (kv KeyValue) Value() string {
	_, value, found := strings.Cut(string(kv), "=")
	if !found {
		return ""
	}
	return value
}

// Valid reports whether the pair has a '=' and a non-empty key.
func (kv KeyValue) Valid() bool {
	key, _, found := strings.Cut(string(kv), "=")
	return found && key != ""
}

func (kv KeyValue) String() string {
	return string(kv)
}
