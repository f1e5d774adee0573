// Package main serves the latest correlations and news counts over HTTP.
package main

import (
	"os"

	"colnews/internal/config"
	"colnews/internal/stages"
)

func main() {
	os.Exit(stages.Main(config.StageDashboard, stages.ParseFlags(config.StageDashboard)))
}
