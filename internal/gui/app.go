// Package gui is the desktop front-end: pick two teams, press Predict, read the answer.
package gui

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/richard-senior/matchpredict/pkg/predictor"
)

// App represents the GUI application.
type App struct {
	app    fyne.App
	window fyne.Window
	svc    predictor.Predictor

	home   *widget.Select
	away   *widget.Select
	result *widget.Label
	button *widget.Button
}

// NewApp creates a new GUI application.
func NewApp(svc predictor.Predictor) *App {
	return NewAppWith(app.New(), svc)
}

// NewAppWith uses an existing fyne application, e.g. the test driver.
func NewAppWith(fa fyne.App, svc predictor.Predictor) *App {
	return &App{app: fa, svc: svc}
}

// Run shows the window and blocks until it is closed.
func (a *App) Run() {
	a.Window().ShowAndRun()
}

// Window builds the main window on first use.
func (a *App) Window() fyne.Window {
	if a.window == nil {
		a.window = a.app.NewWindow("Football Match Predictor")
		a.window.Resize(fyne.NewSize(520, 300))
		a.window.SetContent(a.createContent())
	}
	return a.window
}

func (a *App) createContent() fyne.CanvasObject {
	teams := a.svc.Teams()
	a.home = widget.NewSelect(teams, nil)
	a.home.PlaceHolder = "Select home team"
	a.away = widget.NewSelect(teams, nil)
	a.away.PlaceHolder = "Select away team"

	a.result = widget.NewLabel("")
	a.result.Wrapping = fyne.TextWrapWord
	a.button = widget.NewButton("Predict", a.onPredict)

	r := a.svc.Report()
	accuracy := widget.NewLabel(fmt.Sprintf("Model Accuracy: %s (%s)", r.AccuracyPercent(), r.Mode))

	form := widget.NewForm(
		widget.NewFormItem("Home Team", a.home),
		widget.NewFormItem("Away Team", a.away),
	)
	return container.NewBorder(
		widget.NewLabelWithStyle("Football Match Predictor", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		accuracy, nil, nil,
		container.NewVBox(form, a.button, a.result),
	)
}

func (a *App) onPredict() {
	title, message, err := Describe(a.svc, a.home.Selected, a.away.Selected)
	a.result.SetText(message)
	if err != nil {
		dialog.ShowError(errors.New(message), a.window)
		return
	}
	dialog.ShowInformation(title, message, a.window)
}

// Describe runs one prediction and returns the dialog title and text to show for it.
// err is the prediction error, if any, and message is then its user-facing form.
func Describe(svc predictor.Predictor, home, away string) (title, message string, err error) {
	resp, err := svc.PredictOutcome(home, away)
	if err != nil {
		return "Error", predictor.UserMessage(err), err
	}
	return "Prediction", resp.Message(), nil
}
