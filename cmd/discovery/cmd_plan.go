package main

import (
	"fmt"

	"discoverydraft-backend/pipeline"

	"github.com/spf13/cobra"
)

var planRequests bool

// planCmd runs every stage up to the split and prints the result without
// contacting the renderer
var planCmd = &cobra.Command{
	Use:   "plan <submission.json|->",
	Short: "Build the document plan for a submission (dry run)",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planRequests, "requests", false, "Print full generation requests instead of a summary")
}

type planSummary struct {
	CaseNumber   string       `json:"case_number"`
	CaseUnits    []string     `json:"case_units"`
	FlagWarnings []string     `json:"flag_warnings"`
	Sets         []setSummary `json:"sets"`
}

type setSummary struct {
	RequestID string `json:"request_id"`
	Title     string `json:"title"`
	Items     int    `json:"items"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadPipelineConfig()
	if err != nil {
		return err
	}
	raw, err := readSubmission(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}
	plan, err := p.Plan(raw)
	if err != nil {
		return err
	}

	if planRequests {
		return writeJSON(cmd.OutOrStdout(), plan)
	}
	return writeJSON(cmd.OutOrStdout(), summarizePlan(plan))
}

func summarizePlan(plan *pipeline.Plan) planSummary {
	s := planSummary{
		CaseNumber:   plan.Submission.CaseNumber,
		CaseUnits:    make([]string, 0, len(plan.CaseUnits)),
		FlagWarnings: make([]string, 0, len(plan.Warnings)),
		Sets:         make([]setSummary, 0, len(plan.Requests)),
	}
	for _, unit := range plan.CaseUnits {
		s.CaseUnits = append(s.CaseUnits, unit.ID)
	}
	for _, w := range plan.Warnings {
		s.FlagWarnings = append(s.FlagWarnings, fmt.Sprintf("%s: %s", w.CaseUnitID, w.Code))
	}
	for _, req := range plan.Requests {
		s.Sets = append(s.Sets, setSummary{RequestID: req.RequestID, Title: req.Title, Items: len(req.Items)})
	}
	return s
}
