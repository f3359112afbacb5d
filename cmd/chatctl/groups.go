package main

import (
	"strings"

	"chat-presence/domain"
	"chat-presence/services"

	"github.com/spf13/cobra"
)

func (a *app) groupCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "group", Short: "Manage groups"}
	cmd.AddCommand(a.groupAddCmd(), a.groupListCmd())
	return cmd
}

func (a *app) groupAddCmd() *cobra.Command {
	var group domain.Group
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a group, its creator becomes an admin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withAdmin(func(admin *services.AdminService) error {
				created, err := admin.CreateGroup(cmd.Context(), group)
				if err != nil {
					return err
				}
				success(cmd, "Group %s created with %d members", created.ID, len(created.Members))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&group.ID, "id", "", "group id, generated when empty")
	cmd.Flags().StringVar(&group.Name, "name", "", "group name")
	cmd.Flags().StringVar(&group.Description, "description", "", "group description")
	cmd.Flags().StringVar(&group.CreatedBy, "created-by", "", "creator user id")
	cmd.Flags().StringSliceVar(&group.Members, "members", nil, "member user ids")
	cmd.Flags().StringSliceVar(&group.Admins, "admins", nil, "admin user ids")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) groupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List groups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withAdmin(func(admin *services.AdminService) error {
				groups, err := admin.ListGroups(cmd.Context())
				if err != nil {
					return err
				}
				table := newTable(cmd, "ID", "Name", "Members", "Admins", "Created by")
				for _, g := range groups {
					table.Append([]string{g.ID, g.Name, strings.Join(g.Members, ","), strings.Join(g.Admins, ","), g.CreatedBy})
				}
				table.Render()
				return nil
			})
		},
	}
}
