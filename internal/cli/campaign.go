package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCampaignCmd создаёт группу команд для управления кампаниями.
func NewCampaignCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "Manage campaigns",
	}

	cmd.AddCommand(
		newCampaignListCmd(clientFn, outputFn),
		newCampaignCreateCmd(clientFn, outputFn),
		newCampaignShowCmd(clientFn, outputFn),
		newCampaignDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newCampaignListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List campaigns",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			campaigns, err := client.ListCampaigns()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "STATUS", "STRATEGY", "CREATED"}
			rows := make([][]string, len(campaigns))
			for i, c := range campaigns {
				rows[i] = []string{c.ID, c.Name, c.Status, c.ErrorStrategy, c.CreatedAt}
			}

			out.Print(headers, rows, campaigns)
			return nil
		},
	}
}

func newCampaignCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var description string
	var strategy string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			campaign, err := client.CreateCampaign(CreateCampaignRequest{
				Name:          args[0],
				Description:   description,
				ErrorStrategy: strategy,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Campaign created: %s", campaign.ID))
			out.Print(
				[]string{"ID", "NAME", "STATUS", "STRATEGY"},
				[][]string{{campaign.ID, campaign.Name, campaign.Status, campaign.ErrorStrategy}},
				campaign,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Campaign description")
	cmd.Flags().StringVar(&strategy, "error-strategy", "", "Error strategy (retry-with-backoff, pause-on-failure, skip-and-continue)")

	return cmd
}

func newCampaignShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show campaign details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			campaign, err := client.GetCampaign(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "NAME", "STATUS", "STRATEGY", "DESCRIPTION", "CREATED"},
				[][]string{{campaign.ID, campaign.Name, campaign.Status, campaign.ErrorStrategy, campaign.Description, campaign.CreatedAt}},
				campaign,
			)
			return nil
		},
	}
}

func newCampaignDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteCampaign(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Campaign deleted: %s", args[0]))
			return nil
		},
	}
}
