package main

import (
	"encoding/json"
	"fmt"

	"github.com/metalyz/backend/analyzer"
)

// AnalyzeCmd is the "analyze" subcommand.
type AnalyzeCmd struct {
	URL  string `arg:"" help:"URL to analyze"`
	Live bool   `help:"Bypass the cache and fail when the page cannot be fetched"`
}

// Run executes the analyze command.
func (c *AnalyzeCmd) Run(deps *Dependencies) error {
	svc, err := buildServices(deps.Ctx, deps.Config, deps.Logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	var analysis *analyzer.Analysis
	if c.Live {
		analysis, err = svc.Analyzer.Live(deps.Ctx, c.URL)
	} else {
		analysis, err = svc.Analyzer.Analyze(deps.Ctx, c.URL)
	}
	if err != nil {
		return fmt.Errorf("failed to analyze %s: %w", c.URL, err)
	}

	enc := json.NewEncoder(deps.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(analysis)
}
