// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"fmt"

	"github.com/gobuffalo/packr"
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
	log "github.com/sirupsen/logrus"
)

var staticResources = packr.NewBox("./resources")

func buildInterface(rows []adapterRow) (*gtk.Application, error) {
	app, err := gtk.ApplicationNew("org.koru3d.korued", glib.APPLICATION_FLAGS_NONE)
	if err != nil {
		return nil, err
	}

	app.Connect("startup", func() {
		log.Info("Application starting")
	})

	app.Connect("activate", func() {
		log.Info("Application activating")

		win, err := mainWindow(rows)
		if err != nil {
			log.WithError(err).Error("main window not built")
			app.Quit()
			return
		}
		win.SetDefaultSize(600, 480)
		win.ShowAll()
		app.AddWindow(win)
	})

	app.Connect("shutdown", func() {
		log.Info("Application shutting down")
	})
	return app, nil
}

func mainWindow(rows []adapterRow) (*gtk.Window, error) {
	resource, err := staticResources.FindString("korued.glade")
	if err != nil {
		return nil, err
	}

	builder, err := gtk.BuilderNew()
	if err != nil {
		return nil, err
	}
	if err := builder.AddFromString(resource); err != nil {
		return nil, err
	}

	obj, err := builder.GetObject("mainWindow")
	if err != nil {
		return nil, err
	}
	win, ok := obj.(*gtk.Window)
	if !ok {
		return nil, errors.New("failed to cast Object from builder to Window")
	}

	obj, err = builder.GetObject("adapterView")
	if err != nil {
		return nil, err
	}
	view, ok := obj.(*gtk.TreeView)
	if !ok {
		return nil, errors.New("failed to cast Object from builder to TreeView")
	}
	if err := fillAdapters(view, rows); err != nil {
		return nil, err
	}

	obj, err = builder.GetObject("statusLabel")
	if err != nil {
		return nil, err
	}
	if label, ok := obj.(*gtk.Label); ok && len(rows) > 0 {
		label.SetText(fmt.Sprintf("%d adapter(s)", len(rows)))
	}
	return win, nil
}

func fillAdapters(view *gtk.TreeView, rows []adapterRow) error {
	types := make([]glib.Type, len(adapterColumns))
	columns := make([]int, len(adapterColumns))
	for i, title := range adapterColumns {
		types[i] = glib.TYPE_STRING
		columns[i] = i

		renderer, err := gtk.CellRendererTextNew()
		if err != nil {
			return err
		}
		column, err := gtk.TreeViewColumnNewWithAttribute(title, renderer, "text", i)
		if err != nil {
			return err
		}
		view.AppendColumn(column)
	}

	store, err := gtk.ListStoreNew(types...)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := store.Set(store.Append(), columns, row.values()); err != nil {
			return err
		}
	}
	view.SetModel(store)
	return nil
}
