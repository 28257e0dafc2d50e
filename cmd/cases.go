package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/store"
)

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Inspect stored intake cases",
	Long:  "Commands for listing, viewing, and summarizing processed complaint cases.",
}

// -- cases list --

var casesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored cases",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		company, _ := cmd.Flags().GetString("company")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.CaseFilter{
			Status:  model.CaseStatus(status),
			Company: company,
			Limit:   limit,
		}

		cases, err := st.ListCases(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "cases list")
		}

		if len(cases) == 0 {
			fmt.Fprintln(os.Stderr, "No cases found.")
			return nil
		}

		formatCaseList(os.Stdout, cases)
		return nil
	},
}

// -- cases show --

var casesShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show full details of a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		sc, err := st.GetCase(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "cases show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sc)
	},
}

// -- cases stats --

var casesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate case statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		cases, err := st.ListCases(ctx, store.CaseFilter{Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "cases stats")
		}

		formatCaseStats(os.Stdout, computeCaseStats(cases))
		return nil
	},
}

func init() {
	casesListCmd.Flags().String("status", "", "filter by case status (resolved, escalated, error, aborted, ...)")
	casesListCmd.Flags().String("company", "", "filter by detected company")
	casesListCmd.Flags().Int("limit", 50, "max number of cases to display")

	casesCmd.AddCommand(casesListCmd)
	casesCmd.AddCommand(casesShowCmd)
	casesCmd.AddCommand(casesStatsCmd)
	rootCmd.AddCommand(casesCmd)
}

// caseStats holds aggregate counts computed from a set of stored cases.
type caseStats struct {
	Total     int
	Resolved  int
	Escalated int
	Errored   int
	Aborted   int
	Other     int
}

func computeCaseStats(cases []model.StoredCase) caseStats {
	var s caseStats
	s.Total = len(cases)
	for _, sc := range cases {
		switch sc.Status {
		case model.CaseStatusResolved:
			s.Resolved++
		case model.CaseStatusEscalated:
			s.Escalated++
		case model.CaseStatusError:
			s.Errored++
		case model.CaseStatusAborted:
			s.Aborted++
		default:
			s.Other++
		}
	}
	return s
}

// formatCaseList writes a tabular list of cases to w.
func formatCaseList(out io.Writer, cases []model.StoredCase) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tCOMPANY\tCATEGORY\tTARGET\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------\t-------\t--------\t------\t-------")

	for _, sc := range cases {
		company := ""
		category := ""
		target := ""
		if sc.Case != nil {
			if sc.Case.Detection != nil {
				company = sc.Case.Detection.Company
			}
			if sc.Case.Result != nil {
				category = sc.Case.Result.Category
				if sc.Case.Result.Target != nil {
					target = sc.Case.Result.Target.Name
				}
			}
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(sc.SessionID),
			sc.Status,
			company,
			category,
			target,
			sc.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatCaseStats writes aggregate stats to w.
func formatCaseStats(out io.Writer, s caseStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total cases:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Resolved:\t%d\n", s.Resolved)
	_, _ = fmt.Fprintf(w, "Escalated:\t%d\n", s.Escalated)
	_, _ = fmt.Fprintf(w, "Errored:\t%d\n", s.Errored)
	_, _ = fmt.Fprintf(w, "Aborted:\t%d\n", s.Aborted)
	_, _ = fmt.Fprintf(w, "Other:\t%d\n", s.Other)
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a session id for compact
// display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
