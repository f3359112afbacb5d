package main

import (
	"fmt"
	"os"

	"chat-presence/auth"
	"chat-presence/domain"
	"chat-presence/errors"
	"chat-presence/services"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type userFixture struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type groupFixture struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	CreatedBy   string   `yaml:"createdBy"`
	Members     []string `yaml:"members"`
	Admins      []string `yaml:"admins"`
}

// Fixtures is the layout of a seed file.
type Fixtures struct {
	Users  []userFixture  `yaml:"users"`
	Groups []groupFixture `yaml:"groups"`
}

func loadFixtures(path string) (Fixtures, error) {
	var f Fixtures
	raw, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("%w: %s: %v", errors.ErrValidation, path, err)
	}
	return f, nil
}

// seedCmd can be run repeatedly: records that already exist are reported and skipped.
func (a *app) seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users and groups from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fixtures, err := loadFixtures(file)
			if err != nil {
				return err
			}
			return a.withAdmin(func(admin *services.AdminService) error {
				for _, u := range fixtures.Users {
					if err := seedUser(cmd, admin, u); err != nil {
						return err
					}
				}
				for _, g := range fixtures.Groups {
					if err := seedGroup(cmd, admin, g); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "fixtures.yaml", "seed file")
	return cmd
}

func seedUser(cmd *cobra.Command, admin *services.AdminService, u userFixture) error {
	_, err := admin.RegisterUser(cmd.Context(), auth.NewAccount{Name: u.Name, Email: u.Email, Password: u.Password}, u.ID)
	switch {
	case errors.Is(err, errors.ErrUserAlreadyExists):
		notice(cmd, "User %s already exists", u.Email)
	case err != nil:
		return fmt.Errorf("user %s: %w", u.Email, err)
	default:
		success(cmd, "User %s created", u.Email)
	}
	return nil
}

func seedGroup(cmd *cobra.Command, admin *services.AdminService, g groupFixture) error {
	_, err := admin.CreateGroup(cmd.Context(), domain.Group{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		CreatedBy:   g.CreatedBy,
		Members:     g.Members,
		Admins:      g.Admins,
	})
	switch {
	case errors.Is(err, errors.ErrGroupAlreadyExists):
		notice(cmd, "Group %s already exists", g.ID)
	case err != nil:
		return fmt.Errorf("group %s: %w", g.Name, err)
	default:
		success(cmd, "Group %s created", g.Name)
	}
	return nil
}
