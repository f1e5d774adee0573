// Package main runs the RSS fetcher, storing new feed items in the raw directory.
package main

import (
	"os"

	"colnews/internal/config"
	"colnews/internal/stages"
)

func main() {
	os.Exit(stages.Main(config.StageRSS, stages.ParseFlags(config.StageRSS)))
}
