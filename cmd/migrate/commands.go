package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hr-request-backend/internal/migration"
)

// applyCmd represents the apply command
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply every pending schema step",
	Long:  `Applies the target schema steps and prints one line per step. Exits non-zero when a step failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := newRunner()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		reports, err := runner.Apply(ctx, migration.TargetSteps())
		if werr := printReports(cmd.OutOrStdout(), reports); werr != nil {
			return werr
		}
		if err != nil {
			return err
		}
		if n := countFailed(reports); n > 0 {
			return fmt.Errorf("%d schema step(s) failed", n)
		}
		return nil
	},
}

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show which steps apply would run",
	Long:  `Inspects the live schema without changing it and lists the steps that would act.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := newRunner()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		plan, err := runner.Plan(ctx, migration.TargetSteps())
		if err != nil {
			return err
		}
		return printPlan(cmd.OutOrStdout(), plan)
	},
}

func countFailed(reports []migration.StepReport) int {
	n := 0
	for _, r := range reports {
		if r.Outcome == migration.OutcomeFailed {
			n++
		}
	}
	return n
}

func printReports(w io.Writer, reports []migration.StepReport) error {
	if jsonOutput {
		return json.NewEncoder(w).Encode(reports)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tOUTCOME\tREASON")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.StepID, r.Outcome, r.Reason)
	}
	return tw.Flush()
}

func printPlan(w io.Writer, plan []migration.PlanEntry) error {
	if jsonOutput {
		return json.NewEncoder(w).Encode(plan)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tACTION\tWOULD APPLY\tREASON")
	for _, e := range plan {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", e.StepID, e.Action, e.WouldApply, e.Reason)
	}
	return tw.Flush()
}
