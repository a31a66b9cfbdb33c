package footballdata

import (
	"errors"
	"fmt"
)

// ErrDataUnavailable matches any DataUnavailableError via errors.Is.
var ErrDataUnavailable = errors.New("data unavailable")

// DataUnavailableError is returned when a source cannot be fetched or parsed into match records.
type DataUnavailableError struct {
	Source string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable from %s: %v", e.Source, e.Err)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}

func (e *DataUnavailableError) Is(target error) bool {
	return target == ErrDataUnavailable
}

func unavailable(source string, err error) error {
	return &DataUnavailableError{Source: source, Err: err}
}
