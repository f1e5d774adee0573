// Package main cleans raw articles into plain-text documents.
package main

import (
	"os"

	"colnews/internal/config"
	"colnews/internal/stages"
)

func main() {
	os.Exit(stages.Main(config.StageProcessor, stages.ParseFlags(config.StageProcessor)))
}
