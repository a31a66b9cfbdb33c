package api

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/richard-senior/matchpredict/internal/logger"
)

type pageData struct {
	Teams    []string
	Home     string
	Away     string
	Result   string
	Error    string
	Accuracy string
	Mode     string
	Note     string
	Matches  int
	StatsURL string
}

func (h *APIHandler) page() pageData {
	r := h.svc.Report()
	p := pageData{
		Teams:    h.svc.Teams(),
		Accuracy: r.AccuracyPercent(),
		Mode:     string(r.Mode),
		Matches:  r.TrainSamples,
		StatsURL: statsURL("", ""),
	}
	if r.FellBack() {
		p.Note = "Too few matches to hold any out; accuracy is measured on the training data."
	}
	return p
}

func (h *APIHandler) render(w http.ResponseWriter, status int, p pageData) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, p); err != nil {
		logger.Error("Failed to render page", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Football Match Predictor</title>
<style>
body { font-family: sans-serif; display: flex; gap: 2em; margin: 2em; }
aside { min-width: 14em; border-right: 1px solid #ddd; padding-right: 1em; }
.result { color: #3BA272; font-weight: bold; }
.error { color: #EE6666; font-weight: bold; }
</style>
</head>
<body>
<aside>
<h3>Model</h3>
<p>Accuracy: <strong>{{.Accuracy}}</strong></p>
<p>Evaluation: {{.Mode}}</p>
<p>Matches: {{.Matches}}</p>
{{if .Note}}<p><em>{{.Note}}</em></p>{{end}}
<p><a href="{{.StatsURL}}">Charts</a></p>
</aside>
<main>
<h1>Football Match Predictor</h1>
<form method="post" action="/predict">
<label>Home Team
<select name="home">
<option value="">Select...</option>
{{range .Teams}}<option value="{{.}}"{{if eq . $.Home}} selected{{end}}>{{.}}</option>
{{end}}</select>
</label>
<label>Away Team
<select name="away">
<option value="">Select...</option>
{{range .Teams}}<option value="{{.}}"{{if eq . $.Away}} selected{{end}}>{{.}}</option>
{{end}}</select>
</label>
<button type="submit">Predict</button>
</form>
{{if .Result}}<p class="result">{{.Result}}</p>{{end}}
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
</main>
</body>
</html>
`))
