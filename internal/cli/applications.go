package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewApplicationsCmd создаёт группу команд для управления заявками.
func NewApplicationsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "applications",
		Aliases: []string{"app", "apps"},
		Short:   "Manage KYC applications",
	}

	cmd.AddCommand(
		newApplicationsListCmd(clientFn, outputFn),
		newApplicationsShowCmd(clientFn, outputFn),
		newApplicationsApproveCmd(clientFn, outputFn),
		newApplicationsRejectCmd(clientFn, outputFn),
		newApplicationsStatusCmd(clientFn, outputFn),
		newApplicationsDownloadCmd(clientFn, outputFn),
	)

	return cmd
}

var applicationHeaders = []string{"ID", "NAME", "ID_TYPE", "STATUS", "DOCUMENT", "SUBMITTED"}

func applicationRow(a ApplicationResponse) []string {
	doc := "-"
	if a.DocumentGenerated {
		doc = "yes"
	}
	return []string{a.ID, a.FullName, a.IDType, Status(a.Status), doc, a.SubmittedAt}
}

func newApplicationsListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			apps, err := client.ListApplications(ListApplicationsOpts{
				Status: status,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(apps))
			for i, a := range apps {
				rows[i] = applicationRow(a)
			}

			out.Print(applicationHeaders, rows, apps)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, approved, rejected)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newApplicationsShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show application details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := clientFn().GetApplication(args[0])
			if err != nil {
				return err
			}
			outputFn().Print(applicationHeaders, [][]string{applicationRow(*app)}, app)
			return nil
		},
	}
}

func newApplicationsApproveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "approve ID",
		Short: "Approve an application and queue document generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			res, err := clientFn().Approve(args[0])
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Code == "QUEUE_UNAVAILABLE" {
				// Заявка одобрена, задачу поставит reconciler
				out.Warn(apiErr.Message)
				return nil
			}
			if err != nil {
				return err
			}

			out.Success(res.Message)
			out.Print(applicationHeaders, [][]string{applicationRow(res.Application)}, res)
			return nil
		},
	}
}

func newApplicationsRejectCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "reject ID",
		Short: "Reject an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			res, err := clientFn().Reject(args[0])
			if err != nil {
				return err
			}

			out.Success(res.Message)
			out.Print(applicationHeaders, [][]string{applicationRow(res.Application)}, res)
			return nil
		},
	}
}

func newApplicationsStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status ID",
		Short: "Show document generation status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := clientFn().DocumentStatus(args[0])
			if err != nil {
				return err
			}

			outputFn().Print(
				[]string{"ID", "STATE", "LOCATOR"},
				[][]string{{res.ApplicationID, Status(res.State), res.Locator}},
				res,
			)
			return nil
		},
	}
}

func newApplicationsDownloadCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download ID",
		Short: "Download the generated document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			var buf bytes.Buffer
			_, err := clientFn().DownloadDocument(args[0], &buf)
			if errors.Is(err, ErrDocumentPending) {
				out.Warn(err.Error())
				return nil
			}
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := os.Stdout.Write(buf.Bytes())
				return err
			}
			if output == "" {
				output = "kyc-" + args[0] + ".pdf"
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}

			out.Success(fmt.Sprintf("Saved %s (%d bytes)", output, buf.Len()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", `Output file ("-" for stdout, default kyc-<id>.pdf)`)

	return cmd
}
