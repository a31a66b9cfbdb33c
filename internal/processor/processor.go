package processor

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/pkg/predictor"
)

// Version is reported in the metadata of every response.
const Version = "1.0.0"

// QueryRequest is a one-shot query, e.g. {"query": "predict Arsenal vs Chelsea"}.
type QueryRequest struct {
	Query     string `json:"query"`
	RequestID string `json:"requestId"`
}

// QueryResponse is the answer to a query
type QueryResponse struct {
	RequestID   string         `json:"requestId,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	RequestID string `json:"requestId,omitempty"`
	Error     struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var (
	suggestions = []string{
		"List the teams with 'teams' or 'teams [filter]'",
		"Describe the model with 'model'",
		"Predict a fixture with 'predict [home] vs [away]'",
	}
	fixturePattern = regexp.MustCompile(`(?i)^\s*(.*?)\s+vs?\.?\s+(.*?)\s*$`)
)

// Processor answers queries against a trained service.
type Processor struct {
	svc predictor.Predictor
}

func NewProcessor(svc predictor.Predictor) *Processor {
	return &Processor{svc: svc}
}

// createErrorResponse creates an error response
func createErrorResponse(code, message, requestID string) ([]byte, error) {
	var response ErrorResponse
	response.RequestID = requestID
	response.Error.Code = code
	response.Error.Message = message

	return json.MarshalIndent(response, "", "  ")
}

func (p *Processor) respond(requestID string, ctx map[string]any) ([]byte, error) {
	response := QueryResponse{
		RequestID: requestID,
		Context:   ctx,
		Metadata: map[string]any{
			"version": Version,
			"modelId": p.svc.Report().ModelID,
		},
	}
	jsonResult, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		logger.Error("Failed to marshal response to JSON", err)
		return createErrorResponse("internal_error", "Failed to create response", requestID)
	}
	return jsonResult, nil
}

// ProcessRequest processes a JSON query and returns a JSON response.
// Rejected predictions are answered with an error response, not a Go error.
func (p *Processor) ProcessRequest(input []byte) ([]byte, error) {
	var request QueryRequest
	if err := json.Unmarshal(input, &request); err != nil {
		logger.Error("Failed to parse input JSON", err)
		return createErrorResponse("invalid_request", fmt.Sprintf("Invalid JSON: %v", err), "")
	}

	logger.Info("Processing request", request.Query)

	command, rest, _ := strings.Cut(strings.TrimSpace(request.Query), " ")
	switch strings.ToLower(command) {
	case "teams":
		return p.teams(request.RequestID, strings.TrimSpace(rest))
	case "model":
		return p.respond(request.RequestID, map[string]any{"report": p.svc.Report()})
	case "predict":
		return p.predict(request.RequestID, rest)
	}

	response := QueryResponse{
		RequestID:   request.RequestID,
		Suggestions: suggestions,
		Metadata:    map[string]any{"version": Version},
	}
	return json.MarshalIndent(response, "", "  ")
}

func (p *Processor) teams(requestID, filter string) ([]byte, error) {
	teams := p.svc.Teams()
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
	return p.respond(requestID, map[string]any{"teams": teams})
}

func (p *Processor) predict(requestID, fixture string) ([]byte, error) {
	home, away := ParseFixture(fixture)
	resp, err := p.svc.PredictOutcome(home, away)
	if err != nil {
		code := "prediction_error"
		switch {
		case errors.Is(err, predictor.ErrValidation):
			code = "validation_error"
		case errors.Is(err, predictor.ErrUnknownTeam):
			code = "unknown_team"
		}
		return createErrorResponse(code, predictor.UserMessage(err), requestID)
	}
	return p.respond(requestID, map[string]any{
		"prediction": resp,
		"message":    resp.Message(),
	})
}

// ParseFixture splits "Arsenal vs Chelsea" (or "v", "vs.") into its two team names.
// Anything without a separator is returned as a home team with no opponent.
func ParseFixture(s string) (home, away string) {
	m := fixturePattern.FindStringSubmatch(s)
	if m == nil {
		return strings.TrimSpace(s), ""
	}
	return m[1], m[2]
}
