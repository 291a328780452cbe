// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"os"

	"github.com/gotk3/gotk3/gtk"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/kdev/core"
	"github.com/devblok/kdev/native"
)

func init() {
	gtk.Init(&os.Args)
}

func main() {
	instance, err := native.NewInstance(
		native.ApplicationInfo("korued", core.Version(0, 1, 0)),
		nil,
		native.InstanceConfiguration{})
	if err != nil {
		log.WithError(err).Fatal("instance creation failed")
	}

	app, err := buildInterface(adapterRows(instance.Adapters()))
	if err != nil {
		instance.Destroy()
		log.WithError(err).Fatal("interface creation failed")
	}
	code := app.Run(os.Args)
	instance.Destroy()
	os.Exit(code)
}
