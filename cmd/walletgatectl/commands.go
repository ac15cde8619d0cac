package main

import (
	"context"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	walletgate "github.com/scholarchain/walletgate"
)

const commandTimeout = 30 * time.Second

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Connect the wallet and establish a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, store, err := openReconciler()
		if err != nil {
			return err
		}
		defer store.Close()
		defer r.Close()

		password, err := pterm.DefaultInteractiveTextInput.
			WithMask("*").
			Show("Password")
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		spinner, _ := pterm.DefaultSpinner.Start("Logging in")
		result, err := r.Login(ctx, password)
		if err != nil {
			spinner.Fail("Login failed: " + walletgate.AuditErrorCode(err))
			return err
		}
		spinner.Success("Logged in")

		pterm.DefaultBasicText.Printfln("Address: %s", result.Address)
		pterm.DefaultBasicText.Printfln("Role:    %s", result.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the local session",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, store, err := openReconciler()
		if err != nil {
			return err
		}
		defer store.Close()
		defer r.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		if err := r.Logout(ctx); err != nil {
			return err
		}
		pterm.Success.Println("Logged out")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Reconcile and print the session state",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, store, err := openReconciler()
		if err != nil {
			return err
		}
		defer store.Close()
		defer r.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		result, err := r.Reconcile(ctx)
		if err != nil {
			return err
		}

		rows := pterm.TableData{
			{"State", result.State.String()},
			{"Logged in", boolWord(result.LoggedIn)},
		}
		if result.Address != "" {
			rows = append(rows, []string{"Address", result.Address})
		}
		if result.Role != "" {
			rows = append(rows, []string{"Role", result.Role})
		}
		if result.Reason != "" {
			rows = append(rows, []string{"Reason", result.Reason})
		}
		if err := pterm.DefaultTable.WithData(rows).Render(); err != nil {
			return err
		}

		if result.Warning != "" {
			pterm.Warning.Println(result.Warning)
		}
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the identity and its capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, store, err := openReconciler()
		if err != nil {
			return err
		}
		defer store.Close()
		defer r.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		result, err := r.Reconcile(ctx)
		if err != nil {
			return err
		}
		if !result.LoggedIn {
			pterm.Info.Println("Not logged in")
			if result.Reason != "" {
				pterm.Info.Println(result.Reason)
			}
			return nil
		}

		pterm.DefaultBasicText.Printfln("Address: %s", result.Address)
		pterm.DefaultBasicText.Printfln("Role:    %s", result.Role)
		if result.Name != "" {
			pterm.DefaultBasicText.Printfln("Name:    %s", result.Name)
		}
		if result.Email != "" {
			pterm.DefaultBasicText.Printfln("Email:   %s", result.Email)
		}

		capabilities := r.Policy().CapabilitiesOf(result.Role)
		if len(capabilities) > 0 {
			pterm.DefaultSection.Println("Capabilities")
			items := make([]pterm.BulletListItem, 0, len(capabilities))
			for _, capability := range capabilities {
				items = append(items, pterm.BulletListItem{Level: 0, Text: capability})
			}
			if err := pterm.DefaultBulletList.WithItems(items).Render(); err != nil {
				return err
			}
		}
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a backend account for the connected wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, store, err := openReconciler()
		if err != nil {
			return err
		}
		defer store.Close()
		defer r.Close()

		name, err := pterm.DefaultInteractiveTextInput.Show("Name")
		if err != nil {
			return err
		}
		email, err := pterm.DefaultInteractiveTextInput.Show("Email")
		if err != nil {
			return err
		}
		password, err := pterm.DefaultInteractiveTextInput.
			WithMask("*").
			Show("Password")
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		if err := r.Register(ctx, name, email, password); err != nil {
			pterm.Error.Println("Registration failed: " + walletgate.AuditErrorCode(err))
			return err
		}
		pterm.Success.Println("Registered, you can now log in")
		return nil
	},
}

func boolWord(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
