package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewQueueCmd создаёт группу команд для управления очередями кампаний.
func NewQueueCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage campaign queues",
	}

	cmd.AddCommand(
		newQueueListCmd(clientFn, outputFn),
		newQueueStatusCmd(clientFn, outputFn),
		newQueuePauseCmd(clientFn, outputFn),
		newQueueResumeCmd(clientFn, outputFn),
		newQueueRemoveCmd(clientFn, outputFn),
	)

	return cmd
}

func newQueueListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List campaign queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			queues, err := client.ListQueues()
			if err != nil {
				return err
			}

			headers := []string{"CAMPAIGN_ID", "QUEUE", "WORKERS", "STATUS", "COMPLETED", "FAILED"}
			rows := make([][]string, len(queues))
			for i, q := range queues {
				rows[i] = []string{
					q.CampaignID, q.QueueName, strconv.Itoa(q.WorkerCount),
					q.Status, strconv.Itoa(q.CompletedJobs), strconv.Itoa(q.FailedJobs),
				}
			}

			out.Print(headers, rows, queues)
			return nil
		},
	}
}

func newQueueStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status CAMPAIGN_ID",
		Short: "Show live queue counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			status, err := client.GetQueueStatus(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"QUEUE", "WAITING", "COMPLETED", "FAILED", "PAUSED"},
				[][]string{{
					status.QueueName, strconv.Itoa(status.Waiting),
					strconv.Itoa(status.Completed), strconv.Itoa(status.Failed),
					strconv.FormatBool(status.Paused),
				}},
				status,
			)
			return nil
		},
	}
}

func newQueuePauseCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "pause CAMPAIGN_ID",
		Short: "Pause queue processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			queue, err := client.PauseQueue(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Queue paused: %s", queue.QueueName))
			return nil
		},
	}
}

func newQueueResumeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "resume CAMPAIGN_ID",
		Short: "Resume queue processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			queue, err := client.ResumeQueue(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Queue resumed: %s", queue.QueueName))
			return nil
		},
	}
}

func newQueueRemoveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "remove CAMPAIGN_ID",
		Short: "Remove a campaign queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.RemoveQueue(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Queue removal requested: %s", args[0]))
			return nil
		},
	}
}
