package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewRunCmd создаёт группу команд для управления runs.
func NewRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Manage campaign runs",
	}

	cmd.AddCommand(
		newRunListCmd(clientFn, outputFn),
		newRunStartCmd(clientFn, outputFn),
		newRunShowCmd(clientFn, outputFn),
		newRunCancelCmd(clientFn, outputFn),
		newRunLogsCmd(clientFn, outputFn),
	)

	return cmd
}

// runProgress форматирует агрегаты run как "processed/total (success/failed)".
func runProgress(r *RunResponse) string {
	return fmt.Sprintf("%d/%d (%d ok, %d failed)",
		r.Stats.Processed, r.Stats.TotalLeads, r.Stats.Success, r.Stats.Failed)
}

func newRunListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var campaignID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runs, err := client.ListRuns(ListRunsOpts{
				CampaignID: campaignID,
				Status:     status,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "CAMPAIGN_ID", "STATUS", "PROGRESS", "CREATED"}
			rows := make([][]string, len(runs))
			for i := range runs {
				rows[i] = []string{runs[i].ID, runs[i].CampaignID, runs[i].Status, runProgress(&runs[i]), runs[i].CreatedAt}
			}

			out.Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&campaignID, "campaign-id", "", "Filter by campaign ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, running, completed, failed, canceled)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newRunStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var leadListID string
	var idempotencyKey string
	var priority int

	cmd := &cobra.Command{
		Use:   "start CAMPAIGN_ID",
		Short: "Start a campaign run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if leadListID == "" {
				return fmt.Errorf("--lead-list-id is required")
			}

			run, err := client.StartRun(args[0], CreateRunRequest{
				LeadListID:     leadListID,
				IdempotencyKey: idempotencyKey,
				Priority:       priority,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run started: %s", run.ID))
			out.Print(
				[]string{"ID", "CAMPAIGN_ID", "STATUS", "LEADS"},
				[][]string{{run.ID, run.CampaignID, run.Status, strconv.Itoa(run.Stats.TotalLeads)}},
				run,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&leadListID, "lead-list-id", "", "Lead list to run the campaign for (required)")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key for the run")
	cmd.Flags().IntVar(&priority, "priority", 0, "Job priority, 0..10")

	return cmd
}

func newRunShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.GetRun(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "CAMPAIGN_ID", "STATUS", "PROGRESS", "ERROR", "CREATED"},
				[][]string{{run.ID, run.CampaignID, run.Status, runProgress(run), run.Error, run.CreatedAt}},
				run,
			)
			return nil
		},
	}
}

func newRunCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.CancelRun(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run canceled: %s", run.ID))
			return nil
		},
	}
}

func newRunLogsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs RUN_ID",
		Short: "Show run logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			logs, err := client.ListRunLogs(args[0], limit)
			if err != nil {
				return err
			}

			headers := []string{"TIMESTAMP", "LEVEL", "NODE", "MESSAGE"}
			rows := make([][]string, len(logs))
			for i, l := range logs {
				rows[i] = []string{l.Timestamp, l.Level, l.NodeID, l.Message}
			}

			out.Print(headers, rows, logs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of log entries")

	return cmd
}
