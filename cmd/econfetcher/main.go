// Package main records the daily COLCAP value and USD/COP rate.
package main

import (
	"os"

	"colnews/internal/config"
	"colnews/internal/stages"
)

func main() {
	os.Exit(stages.Main(config.StageEconomic, stages.ParseFlags(config.StageEconomic)))
}
