package main

import (
	"time"

	"chat-presence/auth"
	"chat-presence/services"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage users"}
	cmd.AddCommand(a.userAddCmd(), a.userListCmd())
	return cmd
}

func (a *app) userAddCmd() *cobra.Command {
	var (
		id  string
		acc auth.NewAccount
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withAdmin(func(admin *services.AdminService) error {
				user, err := admin.RegisterUser(cmd.Context(), acc, id)
				if err != nil {
					return err
				}
				success(cmd, "User %s created (%s)", user.ID, user.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "user id, generated when empty")
	cmd.Flags().StringVar(&acc.Name, "name", "", "display name")
	cmd.Flags().StringVar(&acc.Email, "email", "", "email address")
	cmd.Flags().StringVar(&acc.Password, "password", "", "password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withAdmin(func(admin *services.AdminService) error {
				users, err := admin.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				table := newTable(cmd, "ID", "Name", "Email", "Created")
				for _, u := range users {
					table.Append([]string{u.ID, u.Name, u.Email, u.CreatedAt.Format(time.RFC3339)})
				}
				table.Render()
				return nil
			})
		},
	}
}

func newTable(cmd *cobra.Command, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
