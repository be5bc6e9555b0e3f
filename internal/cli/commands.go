package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"talentMarket/business/refund"
	"talentMarket/pkg/config"
	"talentMarket/pkg/utils"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the postgres schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Storage.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate needs STORAGE_DRIVER=%s", config.DriverPostgres)
			}
			a.migrate = true
			if _, err := a.services(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newGenerateCmd(a *app) *cobra.Command {
	var (
		jobID       string
		candidateID string
		k           int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Recompute the ranked set for a job or a candidate",
		Long: `Recompute the ranked set for a job or a candidate.

Examples:
  matchctl generate --job J1 -k 50
  matchctl generate --candidate C7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (jobID == "") == (candidateID == "") {
				return errors.New("exactly one of --job or --candidate is required")
			}
			c, err := a.services()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			scores := c.Ranking.GenerateForJob
			owner := jobID
			if candidateID != "" {
				scores = c.Ranking.GenerateForCandidate
				owner = candidateID
			}
			out, err := scores(ctx, owner, k)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tJOB\tCANDIDATE\tCOMPOSITE")
			for _, m := range out {
				fmt.Fprintf(w, "%d\t%s\t%s\t%.4f\n", m.Rank, m.JobID, m.CandidateID, m.Composite)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&jobID, "job", "", "job id")
	cmd.Flags().StringVar(&candidateID, "candidate", "", "candidate id")
	cmd.Flags().IntVarP(&k, "k", "k", 0, "set size (0 = configured default)")
	return cmd
}

func newTopUpCmd(a *app) *cobra.Command {
	var (
		companyID string
		amount    int64
		ref       string
	)
	cmd := &cobra.Command{
		Use:   "topup",
		Short: "Credit tokens to a company wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.services()
			if err != nil {
				return err
			}
			res, err := c.Ledger.TopUp(cmd.Context(), companyID, amount, ref)
			if err != nil {
				return fmt.Errorf("topup: %w", err)
			}
			printLedger(cmd, res.Entry.ID, res.Balance, res.AlreadyApplied)
			return nil
		},
	}
	cmd.Flags().StringVar(&companyID, "company", "", "company id")
	cmd.Flags().Int64Var(&amount, "amount", 0, "tokens to credit")
	cmd.Flags().StringVar(&ref, "ref", "", "external reference, replays are ignored")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("ref")
	return cmd
}

func newRefundCmd(a *app) *cobra.Command {
	var req refund.RefundRequest
	cmd := &cobra.Command{
		Use:   "refund",
		Short: "Credit a company back for an erroneous charge",
		Long: `Credit a company back for an erroneous charge. The original debit is kept.

Examples:
  matchctl refund --company acme --amount 10 --ref grant-ref-123`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.services()
			if err != nil {
				return err
			}
			res, err := c.Refund.Refund(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("refund: %w", err)
			}
			printLedger(cmd, res.Entry.ID, res.Balance, res.AlreadyApplied)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.CompanyID, "company", "", "company id")
	cmd.Flags().Int64Var(&req.Amount, "amount", 0, "tokens to credit")
	cmd.Flags().StringVar(&req.ReferenceID, "ref", "", "reference of the charge being reversed")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("ref")
	return cmd
}

func newReconcileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Check every wallet balance against the sum of its ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.services()
			if err != nil {
				return err
			}
			results, err := c.Ledger.ReconcileAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "COMPANY\tBALANCE\tLEDGER\tENTRIES\tSTATUS")
			drift := 0
			for _, r := range results {
				status := "ok"
				if !r.Consistent {
					status = "DRIFT"
					drift++
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", r.CompanyID, r.Balance, r.LedgerSum, r.EntryCount, status)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d wallets checked\n", len(results))
			if drift > 0 {
				return fmt.Errorf("%d wallets out of balance", drift)
			}
			return nil
		},
	}
}

func newTokenCmd(a *app) *cobra.Command {
	var (
		companyID string
		userID    string
		role      string
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			role = strings.ToUpper(role)
			if role != utils.RoleAdmin && role != utils.RoleCompany {
				return fmt.Errorf("unknown role %q", role)
			}
			if role == utils.RoleCompany && companyID == "" {
				return errors.New("--company is required for company tokens")
			}
			if userID == "" {
				userID = "matchctl"
			}
			token, err := utils.GenerateJWT(a.cfg.JWT.SecretKey, companyID, userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&companyID, "company", "", "company id carried by the token")
	cmd.Flags().StringVar(&userID, "user", "", "user id (actor) carried by the token")
	cmd.Flags().StringVar(&role, "role", utils.RoleCompany, "ADMIN or COMPANY")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func printLedger(cmd *cobra.Command, entryID string, balance int64, replay bool) {
	if replay {
		fmt.Fprintf(cmd.OutOrStdout(), "already applied: entry %s, balance %d\n", entryID, balance)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "entry %s, balance %d\n", entryID, balance)
}
