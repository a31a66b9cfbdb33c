package predictor

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/richard-senior/matchpredict/pkg/footballdata"
)

// Predictor is what the front-ends need from a trained service.
type Predictor interface {
	PredictOutcome(home, away string) (Response, error)
	Teams() []string
	Report() Report
}

// Options configures training.
type Options struct {
	Forest       ForestOptions
	Evaluation   EvaluationMode
	TestFraction float64
}

func DefaultOptions() Options {
	return Options{
		Forest:       DefaultForestOptions(),
		Evaluation:   Holdout,
		TestFraction: DefaultTestFraction,
	}
}

// Report describes a fitted model. Mode is the evaluation actually used, which differs from
// Requested when a holdout split was not possible.
type Report struct {
	ModelID      string                      `json:"modelId"`
	Requested    EvaluationMode              `json:"requestedEvaluation"`
	Mode         EvaluationMode              `json:"evaluation"`
	Accuracy     float64                     `json:"accuracy"`
	TrainSamples int                         `json:"trainSamples"`
	EvalSamples  int                         `json:"evalSamples"`
	Teams        int                         `json:"teams"`
	Trees        int                         `json:"trees"`
	Seed         int64                       `json:"seed"`
	Distribution map[footballdata.Result]int `json:"distribution"`
	TrainedAt    time.Time                   `json:"trainedAt"`
}

// AccuracyPercent formats the accuracy as a percentage with two decimals.
func (r Report) AccuracyPercent() string {
	return fmt.Sprintf("%.2f%%", r.Accuracy*100)
}

// FellBack reports whether a holdout request was served by resubstitution.
func (r Report) FellBack() bool {
	return r.Requested != r.Mode
}

// Service answers prediction requests from an encoder and classifier that never change after
// construction, so it is safe for concurrent use.
type Service struct {
	encoder    *TeamEncoder
	classifier *OutcomeClassifier
	report     Report
}

// NewService encodes the records, fits the classifier and evaluates it.
// Under holdout the served model is the one trained on the training split.
func NewService(records []footballdata.MatchRecord, opts Options) (*Service, error) {
	if len(records) == 0 {
		return nil, errors.New("no match records to train on")
	}
	if opts.Evaluation == "" {
		opts.Evaluation = Holdout
	}
	if opts.TestFraction <= 0 || opts.TestFraction >= 1 {
		opts.TestFraction = DefaultTestFraction
	}
	if opts.Forest.Trees <= 0 {
		opts.Forest.Trees = DefaultTrees
	}

	enc := NewTeamEncoder(records)
	X := make([]Fixture, len(records))
	y := make([]footballdata.Result, len(records))
	for i, r := range records {
		if !r.Complete() {
			return nil, fmt.Errorf("record %d is incomplete", i)
		}
		home, _ := enc.Encode(r.HomeTeam)
		away, _ := enc.Encode(r.AwayTeam)
		X[i] = Fixture{Home: home, Away: away}
		y[i] = r.Result
	}

	report := Report{
		ModelID:   uuid.NewString(),
		Requested: opts.Evaluation,
		Mode:      Resubstitution,
		Teams:     enc.Len(),
		Trees:     opts.Forest.Trees,
		Seed:      opts.Forest.Seed,
		TrainedAt: time.Now().UTC(),
	}

	trainX, trainY, evalX, evalY := X, y, X, y
	if opts.Evaluation == Holdout {
		if train, test, ok := stratifiedSplit(y, opts.TestFraction, opts.Forest.Seed); ok {
			trainX, trainY = pick(X, train), pick(y, train)
			evalX, evalY = pick(X, test), pick(y, test)
			report.Mode = Holdout
		}
	}

	clf := NewOutcomeClassifier(opts.Forest)
	if err := clf.Fit(trainX, trainY); err != nil {
		return nil, fmt.Errorf("failed to fit classifier: %w", err)
	}
	report.Accuracy = clf.Evaluate(evalX, evalY)
	report.TrainSamples = len(trainX)
	report.EvalSamples = len(evalX)
	report.Distribution = make(map[footballdata.Result]int, len(classes))
	for _, r := range trainY {
		report.Distribution[r]++
	}

	return &Service{encoder: enc, classifier: clf, report: report}, nil
}

func pick[T any](src []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = src[j]
	}
	return out
}

// PredictOutcome validates the pair and predicts the result of home playing at home to away.
// Missing selections are reported before identical teams, and both before unknown names.
func (s *Service) PredictOutcome(home, away string) (Response, error) {
	if home == "" || away == "" {
		return Response{}, &ValidationError{Reason: ReasonMissingSelection}
	}
	if home == away {
		return Response{}, &ValidationError{Reason: ReasonTeamsMustDiffer}
	}
	h, err := s.encoder.Encode(home)
	if err != nil {
		return Response{}, err
	}
	a, err := s.encoder.Encode(away)
	if err != nil {
		return Response{}, err
	}
	fx := Fixture{Home: h, Away: a}
	return newResponse(home, away, s.classifier.Predict(fx), s.classifier.PredictProba(fx)), nil
}

func (s *Service) Teams() []string { return s.encoder.Teams() }

func (s *Service) Report() Report {
	r := s.report
	r.Distribution = make(map[footballdata.Result]int, len(s.report.Distribution))
	for k, v := range s.report.Distribution {
		r.Distribution[k] = v
	}
	return r
}

// Encoder exposes the fitted vocabulary.
func (s *Service) Encoder() *TeamEncoder { return s.encoder }
