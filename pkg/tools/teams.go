package tools

import (
	"fmt"
	"strings"

	"github.com/richard-senior/matchpredict/pkg/predictor"
	"github.com/richard-senior/matchpredict/pkg/protocol"
)

func ListTeamsTool() protocol.Tool {
	return protocol.Tool{
		Name:        "list_teams",
		Description: "Lists the teams the model knows, in the order they are offered for selection.",
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"filter": {
					Type:        "string",
					Description: "Optional case-insensitive substring to narrow the list",
				},
			},
			Required: []string{},
		},
	}
}

func HandleListTeams(svc predictor.Predictor) func(params any) (any, error) {
	return func(params any) (any, error) {
		args, err := arguments(params)
		if err != nil {
			return nil, err
		}
		filter, err := stringArg(args, "filter")
		if err != nil {
			return nil, err
		}

		teams := svc.Teams()
		if filter != "" {
			needle := strings.ToLower(filter)
			kept := teams[:0]
			for _, t := range teams {
				if strings.Contains(strings.ToLower(t), needle) {
					kept = append(kept, t)
				}
			}
			teams = kept
		}
		text := fmt.Sprintf("%d teams: %s", len(teams), strings.Join(teams, ", "))
		return protocol.TextResult(text, map[string]any{"teams": teams}), nil
	}
}

func ModelInfoTool() protocol.Tool {
	return protocol.Tool{
		Name:        "model_info",
		Description: "Describes the trained model: accuracy, how it was evaluated and how much data it saw.",
		InputSchema: protocol.InputSchema{
			Type:     "object",
			Required: []string{},
		},
	}
}

func HandleModelInfo(svc predictor.Predictor) func(params any) (any, error) {
	return func(params any) (any, error) {
		r := svc.Report()
		text := fmt.Sprintf("Model Accuracy: %s (%s on %d matches, trained on %d, %d teams, %d trees)",
			r.AccuracyPercent(), r.Mode, r.EvalSamples, r.TrainSamples, r.Teams, r.Trees)
		if r.FellBack() {
			text += fmt.Sprintf("; %s was requested but the data was too small to split", r.Requested)
		}
		return protocol.TextResult(text, r), nil
	}
}
