package predictor

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/richard-senior/matchpredict/pkg/footballdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// league builds a round robin of n teams where the lower numbered team wins at home,
// the higher numbered team draws at home against its neighbour and wins away otherwise.
func league(n int) []footballdata.MatchRecord {
	var records []footballdata.MatchRecord
	for h := 0; h < n; h++ {
		for a := 0; a < n; a++ {
			if h == a {
				continue
			}
			r := footballdata.Home
			switch {
			case h-a == 1:
				r = footballdata.Draw
			case h > a:
				r = footballdata.Away
			}
			records = append(records, footballdata.MatchRecord{
				HomeTeam: fmt.Sprintf("Team %02d", h),
				AwayTeam: fmt.Sprintf("Team %02d", a),
				Result:   r,
			})
		}
	}
	return records
}

func newTestService(t *testing.T, records []footballdata.MatchRecord, mode EvaluationMode) *Service {
	t.Helper()
	opts := DefaultOptions()
	opts.Evaluation = mode
	opts.Forest.Trees = 50
	svc, err := NewService(records, opts)
	require.NoError(t, err, "Failed to train service")
	return svc
}

func TestPredictSingleHomeWin(t *testing.T) {
	svc := newTestService(t, []footballdata.MatchRecord{
		{HomeTeam: "Arsenal", AwayTeam: "Chelsea", Result: footballdata.Home},
	}, Holdout)

	resp, err := svc.PredictOutcome("Arsenal", "Chelsea")
	require.NoError(t, err)
	assert.Equal(t, HomeWin, resp.Outcome)
	assert.Equal(t, "Arsenal", resp.Team)
	assert.Equal(t, "Predicted Winner: Arsenal (Home Win)", resp.Message())
	assert.InDelta(t, 1.0, resp.Probabilities[footballdata.Home], 1e-9)

	report := svc.Report()
	assert.Equal(t, Holdout, report.Requested)
	assert.Equal(t, Resubstitution, report.Mode, "one row cannot be split")
	assert.True(t, report.FellBack())
	assert.Equal(t, 1, report.TrainSamples)
	assert.Equal(t, 1.0, report.Accuracy)
	assert.Equal(t, "100.00%", report.AccuracyPercent())
}

func TestPredictAwayWinAndDraw(t *testing.T) {
	svc := newTestService(t, []footballdata.MatchRecord{
		{HomeTeam: "Arsenal", AwayTeam: "Chelsea", Result: footballdata.Away},
	}, Resubstitution)
	resp, err := svc.PredictOutcome("Arsenal", "Chelsea")
	require.NoError(t, err)
	assert.Equal(t, AwayWin, resp.Outcome)
	assert.Equal(t, "Chelsea", resp.Team)
	assert.Equal(t, "Predicted Winner: Chelsea (Away Win)", resp.Message())

	svc = newTestService(t, []footballdata.MatchRecord{
		{HomeTeam: "Arsenal", AwayTeam: "Chelsea", Result: footballdata.Draw},
	}, Resubstitution)
	resp, err = svc.PredictOutcome("Arsenal", "Chelsea")
	require.NoError(t, err)
	assert.Equal(t, Draw, resp.Outcome)
	assert.Empty(t, resp.Team)
	assert.Equal(t, "Predicted Result: Draw", resp.Message())
}

func TestPredictValidation(t *testing.T) {
	svc := newTestService(t, league(4), Resubstitution)

	cases := []struct {
		home, away string
		reason     string
	}{
		{"Team 00", "Team 00", ReasonTeamsMustDiffer},
		{"", "Team 01", ReasonMissingSelection},
		{"Team 01", "", ReasonMissingSelection},
		{"", "", ReasonMissingSelection},
		{"Unknown FC", "Unknown FC", ReasonTeamsMustDiffer},
	}
	for _, tc := range cases {
		_, err := svc.PredictOutcome(tc.home, tc.away)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidation), "%q vs %q", tc.home, tc.away)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, tc.reason, ve.Reason)
	}

	_, err := svc.PredictOutcome("team 00", "Team 00")
	assert.True(t, errors.Is(err, ErrUnknownTeam), "comparison is case-sensitive so this reaches the encoder")
}

func TestPredictUnknownTeam(t *testing.T) {
	svc := newTestService(t, []footballdata.MatchRecord{
		{HomeTeam: "Arsenal", AwayTeam: "Chelsea", Result: footballdata.Home},
	}, Resubstitution)

	_, err := svc.PredictOutcome("Arsenal", "Unknown FC")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTeam))
	assert.False(t, errors.Is(err, ErrValidation))
	var ue *UnknownTeamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "Unknown FC", ue.Name)

	_, err = svc.PredictOutcome("Unknown FC", "Arsenal")
	assert.True(t, errors.Is(err, ErrUnknownTeam))
}

func TestPredictTotalForEveryPair(t *testing.T) {
	svc := newTestService(t, league(6), Holdout)
	teams := svc.Teams()
	for _, h := range teams {
		for _, a := range teams {
			if h == a {
				continue
			}
			resp, err := svc.PredictOutcome(h, a)
			require.NoError(t, err, "%s vs %s", h, a)
			switch resp.Outcome {
			case HomeWin:
				assert.Equal(t, h, resp.Team)
			case AwayWin:
				assert.Equal(t, a, resp.Team)
			case Draw:
				assert.Empty(t, resp.Team)
			default:
				t.Fatalf("unexpected outcome %v", resp.Outcome)
			}
			sum := 0.0
			for _, p := range resp.Probabilities {
				sum += p
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
		}
	}
}

func TestServiceDeterministic(t *testing.T) {
	records := league(8)
	first := newTestService(t, records, Holdout)
	second := newTestService(t, records, Holdout)

	assert.Equal(t, first.Report().Accuracy, second.Report().Accuracy)
	assert.NotEqual(t, first.Report().ModelID, second.Report().ModelID)
	for _, h := range first.Teams() {
		for _, a := range first.Teams() {
			if h == a {
				continue
			}
			r1, err := first.PredictOutcome(h, a)
			require.NoError(t, err)
			r2, err := second.PredictOutcome(h, a)
			require.NoError(t, err)
			assert.Equal(t, r1, r2)
		}
	}
}

func TestHoldoutReport(t *testing.T) {
	records := league(10)
	svc := newTestService(t, records, Holdout)
	report := svc.Report()

	assert.Equal(t, Holdout, report.Mode)
	assert.False(t, report.FellBack())
	assert.Equal(t, 18, report.EvalSamples, "ceil(0.2 * 90)")
	assert.Equal(t, 72, report.TrainSamples)
	assert.Equal(t, 10, report.Teams)
	assert.Equal(t, 50, report.Trees)
	assert.GreaterOrEqual(t, report.Accuracy, 0.0)
	assert.LessOrEqual(t, report.Accuracy, 1.0)

	total := 0
	for _, n := range report.Distribution {
		total += n
	}
	assert.Equal(t, report.TrainSamples, total)
}

func TestResubstitutionOnUniquePairsIsExact(t *testing.T) {
	opts := DefaultOptions()
	opts.Evaluation = Resubstitution
	svc, err := NewService(league(10), opts)
	require.NoError(t, err)
	report := svc.Report()
	assert.Equal(t, Resubstitution, report.Mode)
	assert.Equal(t, 90, report.EvalSamples)
	assert.Equal(t, 1.0, report.Accuracy)
}

func TestReportIsACopy(t *testing.T) {
	svc := newTestService(t, league(4), Resubstitution)
	r := svc.Report()
	r.Distribution[footballdata.Home] = 1000
	assert.NotEqual(t, 1000, svc.Report().Distribution[footballdata.Home])
}

func TestConcurrentPredictions(t *testing.T) {
	svc := newTestService(t, league(6), Holdout)
	want, err := svc.PredictOutcome("Team 01", "Team 04")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]Response, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = svc.PredictOutcome("Team 01", "Team 04")
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestNewServiceRejectsEmpty(t *testing.T) {
	_, err := NewService(nil, DefaultOptions())
	assert.Error(t, err)

	_, err = NewService([]footballdata.MatchRecord{{HomeTeam: "A", AwayTeam: "B"}}, DefaultOptions())
	assert.Error(t, err, "records without a result cannot be trained on")
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Please select both teams!", UserMessage(&ValidationError{Reason: ReasonMissingSelection}))
	assert.Equal(t, "Home and Away teams must be different!", UserMessage(&ValidationError{Reason: ReasonTeamsMustDiffer}))
	assert.Equal(t, "Unknown team: Unknown FC", UserMessage(fmt.Errorf("wrapped: %w", &UnknownTeamError{Name: "Unknown FC"})))
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
}
