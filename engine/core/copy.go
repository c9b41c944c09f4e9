package core

import (
	"fmt"

	"github.com/mohae/deepcopy"
)

// DeepCopy returns a deep copy of v. A nil pointer or nil map yields the zero value.
func DeepCopy[T any](v T) (T, error) {
	var zero T
	copied := deepcopy.Copy(v)
	if copied == nil {
		return zero, nil
	}
	result, ok := copied.(T)
	if !ok {
		return zero, fmt.Errorf("failed to cast copy to type %T", zero)
	}
	return result, nil
}
