package tools

import (
	"errors"
	"fmt"

	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/pkg/predictor"
	"github.com/richard-senior/matchpredict/pkg/protocol"
)

// ErrInvalidArguments is returned when a tool call is missing or mistypes an argument.
var ErrInvalidArguments = errors.New("invalid arguments")

func PredictMatchTool() protocol.Tool {
	return protocol.Tool{
		Name: "predict_match",
		Description: `
		Predicts the full-time result of a football match between two teams from the loaded season.
		Returns the predicted winner (or a draw) and the model's class probabilities.
		Team names must match the names returned by list_teams exactly, including case.
		`,
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"home": {
					Type:        "string",
					Description: "The home team, e.g. 'Arsenal'",
				},
				"away": {
					Type:        "string",
					Description: "The away team, e.g. 'Chelsea'",
				},
			},
			Required: []string{"home", "away"},
		},
	}
}

// HandlePredictMatch returns the predict_match handler bound to svc.
// Rejected requests are answered as tool errors so the conversation can continue.
func HandlePredictMatch(svc predictor.Predictor) func(params any) (any, error) {
	return func(params any) (any, error) {
		args, err := arguments(params)
		if err != nil {
			return nil, err
		}
		home, err := stringArg(args, "home")
		if err != nil {
			return nil, err
		}
		away, err := stringArg(args, "away")
		if err != nil {
			return nil, err
		}

		resp, err := svc.PredictOutcome(home, away)
		if err != nil {
			if errors.Is(err, predictor.ErrValidation) || errors.Is(err, predictor.ErrUnknownTeam) {
				logger.Info("Rejected prediction", home, away, err)
				return protocol.ErrorResult(predictor.UserMessage(err)), nil
			}
			return nil, err
		}
		return protocol.TextResult(resp.Message(), resp), nil
	}
}

func arguments(params any) (map[string]any, error) {
	if params == nil {
		return map[string]any{}, nil
	}
	args, ok := params.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: couldn't format the parameters as a map", ErrInvalidArguments)
	}
	return args, nil
}

// stringArg reads an optional string argument; a missing key yields "" so the service can
// report the missing selection itself. Values are passed on untouched, team names match exactly.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidArguments, key)
	}
	return s, nil
}
