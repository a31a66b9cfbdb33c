package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/richard-senior/matchpredict/internal/charts"
	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/pkg/predictor"
)

// APIHandler serves the prediction form and its JSON twin.
type APIHandler struct {
	svc predictor.Predictor
}

func NewAPIHandler(svc predictor.Predictor) *APIHandler {
	return &APIHandler{svc: svc}
}

// PredictRequest is the body of POST /api/predict.
type PredictRequest struct {
	Home string `json:"home"`
	Away string `json:"away"`
}

// PredictResponse is a prediction plus its rendered message.
type PredictResponse struct {
	predictor.Response
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SetupRoutes configures the HTTP routes
func (h *APIHandler) SetupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", h.handleIndex).Methods("GET")
	r.HandleFunc("/predict", h.handleFormPredict).Methods("POST")
	r.HandleFunc("/stats", h.handleStats).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/teams", h.handleTeams).Methods("GET")
	api.HandleFunc("/predict", h.handlePredict).Methods("POST")
	api.HandleFunc("/model", h.handleModel).Methods("GET")

	return r
}

// statusFor maps prediction errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, predictor.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, predictor.ErrUnknownTeam):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (h *APIHandler) predict(home, away string) (predictor.Response, error) {
	resp, err := h.svc.PredictOutcome(home, away)
	if err != nil {
		logger.Debug("Prediction rejected", home, away, err)
		return resp, err
	}
	logger.Debug("Predicted", home, away, resp.Outcome)
	return resp, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", err)
	}
}

func (h *APIHandler) handleTeams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"teams": h.svc.Teams()})
}

func (h *APIHandler) handleModel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Report())
}

func (h *APIHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON"})
		return
	}
	resp, err := h.predict(req.Home, req.Away)
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: predictor.UserMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, PredictResponse{Response: resp, Message: resp.Message()})
}

func (h *APIHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, h.page())
}

func (h *APIHandler) handleFormPredict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	p := h.page()
	p.Home, p.Away = r.PostFormValue("home"), r.PostFormValue("away")

	status := http.StatusOK
	resp, err := h.predict(p.Home, p.Away)
	if err != nil {
		status = statusFor(err)
		p.Error = predictor.UserMessage(err)
	} else {
		p.Result = resp.Message()
		p.StatsURL = statsURL(p.Home, p.Away)
	}
	h.render(w, status, p)
}

// handleStats draws the training distribution and, when home and away are given in the
// query, the probabilities of that fixture.
func (h *APIHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	var fixture *predictor.Response
	home, away := r.URL.Query().Get("home"), r.URL.Query().Get("away")
	if home != "" || away != "" {
		resp, err := h.predict(home, away)
		if err != nil {
			http.Error(w, predictor.UserMessage(err), statusFor(err))
			return
		}
		fixture = &resp
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := charts.RenderStats(w, h.svc.Report(), fixture, charts.DefaultChartConfig()); err != nil {
		logger.Error("Failed to render stats", err)
	}
}

// statsURL links the charts page to a fixture, or to the distribution alone when either side is blank.
func statsURL(home, away string) string {
	if home == "" || away == "" {
		return "/stats"
	}
	return "/stats?" + url.Values{"home": {home}, "away": {away}}.Encode()
}
