// Package main correlates topic counts with COLCAP changes and stores the insights.
package main

import (
	"os"

	"colnews/internal/config"
	"colnews/internal/stages"
)

func main() {
	os.Exit(stages.Main(config.StageCorrelator, stages.ParseFlags(config.StageCorrelator)))
}
