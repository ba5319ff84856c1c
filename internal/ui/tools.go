package ui

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// NewToolbar builds the draw / view / clear / save / open bar for surface.
func NewToolbar(surface *Surface, w fyne.Window) fyne.CanvasObject {
	tb := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentCreateIcon(), surface.ToggleDrawMode), // Draw
		widget.NewToolbarAction(theme.VisibilityIcon(), func() { surface.CycleStyle() }), // View
		widget.NewToolbarAction(theme.DeleteIcon(), func() {
			if surface.OnClear != nil {
				surface.OnClear()
			}
		}), // Clear polygons
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), func() { saveDialog(surface, w) }),
		widget.NewToolbarAction(theme.FolderOpenIcon(), func() { openDialog(surface, w) }),
	)

	return container.NewHBox(
		tb,
		widget.NewSeparator(),
		surface.statusBar,
		layout.NewSpacer(),
	)
}

func saveDialog(surface *Surface, w fyne.Window) {
	if surface.OnSave == nil {
		surface.SetStatus("Save not available")
		return
	}
	d := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if writer == nil {
			return
		}
		defer writer.Close()

		ext := strings.ToLower(writer.URI().Extension())
		if ext != ".pdf" {
			ext = ".geojson"
		}
		if err := surface.OnSave(writer, ext); err != nil {
			surface.log.WithError(err).Error("save failed")
			dialog.ShowError(err, w)
			return
		}
		surface.SetStatus("Saved " + writer.URI().Name())
	}, w)
	d.SetFileName("sketch.geojson")
	d.SetFilter(storage.NewExtensionFileFilter([]string{".geojson", ".json", ".pdf"}))
	d.Show()
}

func openDialog(surface *Surface, w fyne.Window) {
	if surface.OnLoad == nil {
		surface.SetStatus("Open not available")
		return
	}
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		if err := surface.OnLoad(reader); err != nil {
			surface.log.WithError(err).Error("open failed")
			dialog.ShowError(err, w)
			return
		}
		surface.SetStatus("Loaded " + reader.URI().Name())
	}, w)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".geojson", ".json"}))
	d.Show()
}
