package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// RunApp opens the main window around surface and blocks until it closes.
// A non-empty shareLink is shown so others can join. onStarted, if set, runs
// once the app is live; network goroutines that touch the surface start there.
func RunApp(title, shareLink string, surface *Surface, onStarted func()) {
	myApp := app.New()
	myWindow := myApp.NewWindow(title)
	v := surface.Viewport()
	myWindow.Resize(fyne.NewSize(float32(v.Width), float32(v.Height)))

	top := NewToolbar(surface, myWindow)
	if shareLink != "" {
		link := widget.NewEntry()
		link.SetText(shareLink)
		top = container.NewVBox(top, container.NewBorder(nil, nil, widget.NewLabel("Share:"), nil, link))
	}

	if onStarted != nil {
		myApp.Lifecycle().SetOnStarted(onStarted)
	}
	myWindow.SetContent(container.NewBorder(top, nil, nil, nil, surface))
	myWindow.ShowAndRun()
}
