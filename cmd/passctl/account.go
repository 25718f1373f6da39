package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/avvvet/pass-services/internal/passsvc/app"
	"github.com/avvvet/pass-services/internal/passsvc/models"
	"github.com/avvvet/pass-services/internal/passsvc/pkpass"
)

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "manage pass owners",
	}
	cmd.AddCommand(accountAddCmd(), accountListCmd(), accountUpdateCmd(), accountDeleteCmd())
	return cmd
}

func accountAddCmd() *cobra.Command {
	var email, name, balance string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "create an account and issue its pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(balance)
			if err != nil {
				return fmt.Errorf("balance: %w", err)
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				account, pass, err := a.Accounts.CreateAccount(ctx, email, name, amount)
				if err != nil {
					return err
				}
				fmt.Printf("account %d created\n", account.ID)
				printIssued(pass)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&name, "name", "", "name shown on the pass")
	cmd.Flags().StringVar(&balance, "balance", "0", "starting balance")
	cmd.MarkFlagRequired("name")
	return cmd
}

func accountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				accounts, err := a.Accounts.ListAccounts(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tBALANCE\tUPDATED")
				for _, acc := range accounts {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", acc.ID, acc.Name, acc.Email,
						acc.Balance.StringFixed(2), acc.UpdatedAt.Format("2006-01-02 15:04:05"))
				}
				return tw.Flush()
			})
		},
	}
}

func accountUpdateCmd() *cobra.Command {
	var email, name, balance string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "change an account and push the new pass to its devices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("account id: %w", err)
			}

			var upd models.AccountUpdate
			if cmd.Flags().Changed("email") {
				upd.Email = &email
			}
			if cmd.Flags().Changed("name") {
				upd.Name = &name
			}
			if cmd.Flags().Changed("balance") {
				amount, err := decimal.NewFromString(balance)
				if err != nil {
					return fmt.Errorf("balance: %w", err)
				}
				upd.Balance = &amount
			}

			return withApp(func(ctx context.Context, a *app.App) error {
				reports, err := a.Accounts.UpdateAccount(ctx, id, upd)
				if err != nil {
					return err
				}
				for _, r := range reports {
					fmt.Printf("pass %d: pushed to %d of %d devices\n", r.PassID, r.Delivered, r.Attempted)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "new email")
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&balance, "balance", "", "new balance")
	return cmd
}

func accountDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "delete an account and its passes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("account id: %w", err)
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := a.Accounts.DeleteAccount(ctx, id); err != nil {
					return err
				}
				fmt.Printf("account %d deleted\n", id)
				return nil
			})
		},
	}
}

func printIssued(p *models.Pass) {
	fmt.Printf("pass %d\n  serial number: %s\n  token:         %s\n  barcode:       %s\n",
		p.ID, p.SerialNumber, p.AuthenticationToken,
		pkpass.BarcodePayload{
			PassTypeID:          p.PassTypeID,
			SerialNumber:        p.SerialNumber,
			AuthenticationToken: p.AuthenticationToken,
		}.Encode())
}
