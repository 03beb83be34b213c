package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the users and user_permissions tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps(true)
		if err != nil {
			return err
		}
		defer d.Close()

		fmt.Fprintln(cmd.OutOrStdout(), "migration finished")
		return nil
	},
}

// 与 /create-admin 等接口对应，便于关闭这些接口后在服务器上操作
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage the reserved admin account",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the admin account from ADMIN_DEFAULT_PASSWORD",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps(false)
		if err != nil {
			return err
		}
		defer d.Close()

		if err = d.accounts.CreateAdmin(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "admin user created")
		return nil
	},
}

var adminResetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Reset the admin password to ADMIN_DEFAULT_PASSWORD",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps(false)
		if err != nil {
			return err
		}
		defer d.Close()

		if err = d.accounts.ResetAdminPassword(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "admin password updated")
		return nil
	},
}

var adminDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps(false)
		if err != nil {
			return err
		}
		defer d.Close()

		if err = d.accounts.DeleteAdmin(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "admin user deleted")
		return nil
	},
}

func init() {
	adminCmd.AddCommand(adminCreateCmd, adminResetPasswordCmd, adminDeleteCmd)
}
