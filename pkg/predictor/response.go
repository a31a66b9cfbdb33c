package predictor

import (
	"fmt"

	"github.com/richard-senior/matchpredict/pkg/footballdata"
)

// Outcome is the user-facing form of a predicted result.
type Outcome int

const (
	HomeWin Outcome = iota + 1
	Draw
	AwayWin
)

func (o Outcome) String() string {
	switch o {
	case HomeWin:
		return "HomeWin"
	case Draw:
		return "Draw"
	case AwayWin:
		return "AwayWin"
	}
	return "Unknown"
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Response is a successful prediction. Team holds the predicted winner and is empty for a draw.
type Response struct {
	Outcome       Outcome                         `json:"outcome"`
	Team          string                          `json:"team,omitempty"`
	HomeTeam      string                          `json:"homeTeam"`
	AwayTeam      string                          `json:"awayTeam"`
	Probabilities map[footballdata.Result]float64 `json:"probabilities,omitempty"`
}

func newResponse(home, away string, r footballdata.Result, proba map[footballdata.Result]float64) Response {
	resp := Response{HomeTeam: home, AwayTeam: away, Probabilities: proba}
	switch r {
	case footballdata.Home:
		resp.Outcome, resp.Team = HomeWin, home
	case footballdata.Away:
		resp.Outcome, resp.Team = AwayWin, away
	default:
		resp.Outcome = Draw
	}
	return resp
}

// Message renders the response for display.
func (r Response) Message() string {
	switch r.Outcome {
	case HomeWin:
		return fmt.Sprintf("Predicted Winner: %s (Home Win)", r.Team)
	case AwayWin:
		return fmt.Sprintf("Predicted Winner: %s (Away Win)", r.Team)
	}
	return "Predicted Result: Draw"
}
