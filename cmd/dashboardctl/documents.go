package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("search")
		filter, _ := cmd.Flags().GetString("filter")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Session.Search(cmd.Context(), query); err != nil {
			return err
		}
		records := a.Session.State().Listing
		if filter != "" {
			records = a.Session.Filter(filter)
		}
		renderListing(cmd.OutOrStdout(), records)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print one stored summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := domain.ParseDocumentIDString(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Session.ShowListing(cmd.Context()); err != nil {
			return err
		}
		if err := a.Session.OpenListed(id); err != nil {
			return err
		}
		record, _ := a.Session.State().Tab(id)
		renderRecord(cmd.OutOrStdout(), record)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a stored summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		assumeYes, _ := cmd.Flags().GetBool("yes")
		id, err := domain.ParseDocumentIDString(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Session.ShowListing(cmd.Context()); err != nil {
			return err
		}
		if err := a.Session.RequestDelete(id); err != nil {
			return err
		}

		target := a.Session.State().Pending.Target
		question := fmt.Sprintf("Delete %q (id %s)? This cannot be undone.", target.DisplayName(), id)
		ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), question, assumeYes)
		if err != nil || !ok {
			if cerr := a.Session.CancelDelete(); cerr != nil {
				return cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Delete cancelled.")
			return nil
		}

		if err := a.Session.ConfirmDelete(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", id)
		return nil
	},
}

var existsCmd = &cobra.Command{
	Use:   "exists FILENAME",
	Short: "Check whether a filename already has a summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Backend.CheckExists(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !result.Exists {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: no summary\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: exists (id %s)\n", args[0], idLabel(result.ID))
		return nil
	},
}

func renderListing(w io.Writer, records []domain.DocumentRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No summaries found.")
		return
	}
	for _, rec := range records {
		fmt.Fprintf(w, "#%-6s %-19s  %s\n", rec.ID, domain.TruncateLabel(rec.DisplayName(), 0), rec.UploadedLabel())
	}
}

func renderRecord(w io.Writer, rec domain.DocumentRecord) {
	fmt.Fprintf(w, "%s  (id %s, uploaded %s)\n", rec.DisplayName(), rec.ID, rec.UploadedLabel())
	if text, ok := rec.Summary.PlainText(); ok {
		fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(text))
		return
	}
	sections, _ := rec.Summary.Sections()
	if len(sections) == 0 {
		fmt.Fprintln(w, "\n(no summary sections)")
		return
	}
	for _, sec := range sections {
		fmt.Fprintf(w, "\n## %s\n%s\n", sec.Heading, strings.TrimSpace(sec.Text))
	}
}
