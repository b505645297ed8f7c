package views

import (
	"orphanfinder/ui/tui/state"
)

func RenderMenu(s state.AppState, width, height, cursor int, animCursor float64, mouseX, mouseY int, spinnerView, progressView string) string {
	v := MenuView{}
	return v.Render(s, ViewProps{
		Width:        width,
		Height:       height,
		MenuCursor:   cursor,
		AnimCursor:   animCursor,
		MouseX:       mouseX,
		MouseY:       mouseY,
		SpinnerView:  spinnerView,
		ProgressView: progressView,
	})
}

func RenderDashboard(s state.AppState, spinnerView, progressView string) string {
	v := DashboardView{}
	return v.Render(s, ViewProps{
		SpinnerView:  spinnerView,
		ProgressView: progressView,
	})
}

func RenderEntities(s state.AppState, props ViewProps) string {
	return EntitiesView{}.Render(s, props)
}

func RenderSQL(s state.AppState, width, height int, spinnerView, sqlView string) string {
	v := SQLView{}
	return v.Render(s, ViewProps{
		Width:       width,
		Height:      height,
		SpinnerView: spinnerView,
		SQLView:     sqlView,
	})
}
