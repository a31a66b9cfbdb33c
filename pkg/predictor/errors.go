package predictor

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrUnknownTeam = errors.New("unknown team")
)

const (
	ReasonMissingSelection = "missing selection"
	ReasonTeamsMustDiffer  = "teams must differ"
)

// ValidationError rejects a request before the model is consulted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UnknownTeamError names a team that was not present in the training data.
type UnknownTeamError struct {
	Name string
}

func (e *UnknownTeamError) Error() string { return fmt.Sprintf("unknown team %q", e.Name) }

func (e *UnknownTeamError) Is(target error) bool { return target == ErrUnknownTeam }

// UserMessage renders a prediction error the way the interactive front-ends show it.
func UserMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		switch ve.Reason {
		case ReasonMissingSelection:
			return "Please select both teams!"
		case ReasonTeamsMustDiffer:
			return "Home and Away teams must be different!"
		}
		return ve.Reason
	}
	var ue *UnknownTeamError
	if errors.As(err, &ue) {
		return fmt.Sprintf("Unknown team: %s", ue.Name)
	}
	return err.Error()
}
