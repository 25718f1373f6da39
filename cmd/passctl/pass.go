package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/avvvet/pass-services/internal/passsvc/app"
)

func passCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pass",
		Short: "manage passes",
	}
	cmd.AddCommand(passAddCmd(), passListCmd())
	return cmd
}

func passAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <account-id>",
		Short: "issue another pass for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("account id: %w", err)
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				pass, err := a.Accounts.IssuePass(ctx, id)
				if err != nil {
					return err
				}
				printIssued(pass)
				return nil
			})
		},
	}
}

func passListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list passes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				passes, err := a.Accounts.ListPasses(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tOWNER\tTYPE\tSERIAL\tUPDATED")
				for _, p := range passes {
					updated := "-"
					if p.UpdatedAt != nil {
						updated = strconv.FormatInt(p.UpdatedAt.Unix(), 10)
					}
					fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", p.ID, p.OwnerID, p.PassTypeID, p.SerialNumber, updated)
				}
				return tw.Flush()
			})
		},
	}
}

func registrationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "registrations",
		Short: "list device registrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				regs, err := a.Registrations.List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "DEVICE\tTYPE\tSERIAL\tPUSH TOKEN")
				for _, r := range regs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.DeviceID, r.PassTypeID, r.SerialNumber, r.PushToken)
				}
				return tw.Flush()
			})
		},
	}
}

func pushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push <pass-id>",
		Short: "push to every device registered for a pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("pass id: %w", err)
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				report, err := a.Notifier.Notify(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("pushed to %d of %d devices\n", report.Delivered, report.Attempted)
				for _, f := range report.Failures {
					fmt.Printf("  %s\n", f)
				}
				return nil
			})
		},
	}
}

func materializeCmd() *cobra.Command {
	var passTypeID, out string
	cmd := &cobra.Command{
		Use:   "materialize <serial-number>",
		Short: "build and sign a pass into a .pkpass file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passTypeID == "" {
				passTypeID = cfg.PassTypeID
			}
			if out == "" {
				out = args[0] + ".pkpass"
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				artifact, err := a.Passes.Materialize(ctx, args[0], passTypeID)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, artifact, 0o644); err != nil {
					return err
				}
				fmt.Printf("wrote %s (%d bytes)\n", out, len(artifact))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&passTypeID, "type", "", "pass type identifier (defaults to PASS_TYPE_ID)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	return cmd
}
