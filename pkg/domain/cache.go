package domain

import (
	"fmt"
	"reflect"
)

// CacheKey identifies one dependency invocation: function identity plus a
// hash of the bound argument values.
type CacheKey struct {
	Function string
	ArgsHash uint64
	// Returns is the declared result type, when known. Backends that serialize
	// values use it to decode; it is not part of the identity.
	Returns reflect.Type
}

// String renders the identity part of the key.
func (k CacheKey) String() string {
	return fmt.Sprintf("%s#%016x", k.Function, k.ArgsHash)
}
