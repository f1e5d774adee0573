// Package main counts clean articles per day and topic.
package main

import (
	"os"

	"colnews/internal/config"
	"colnews/internal/stages"
)

func main() {
	os.Exit(stages.Main(config.StageAnalyzer, stages.ParseFlags(config.StageAnalyzer)))
}
