package main

import (
	"os"

	"fxsync/internal/app"

	"github.com/sirupsen/logrus"
)

// @title fxsync API
// @version 1.0
// @description Currency rate sync and conversion service

// @host localhost:8080
// @BasePath /api/v1

func main() {
	if err := app.Run(); err != nil {
		logrus.WithError(err).Error("fxsync stopped")
		os.Exit(1)
	}
}
