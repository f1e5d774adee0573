// Package main runs the Common Crawl fetcher for the configured Colombian news domains.
package main

import (
	"os"

	"colnews/internal/config"
	"colnews/internal/stages"
)

func main() {
	os.Exit(stages.Main(config.StageCommonCrawl, stages.ParseFlags(config.StageCommonCrawl)))
}
