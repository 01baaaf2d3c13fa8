package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/library-catalog/internal/database"
	"github.com/iliyamo/library-catalog/internal/model"
	"github.com/iliyamo/library-catalog/internal/repository"
	"github.com/iliyamo/library-catalog/internal/service"
	"github.com/iliyamo/library-catalog/internal/utils"
)

var (
	seedEmail     string
	seedPassword  string
	seedFirstName string
	seedLastName  string
)

// seedCmd creates accounts directly in the store. Public registration
// refuses admin accounts, so this is how the first admin is made.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create accounts from the command line",
}

var seedAdminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Create an admin account",
	Long: `Create an active admin account.

Examples:
  library-catalog seed admin --email root@example.com --password 's3cret-pass'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(cmd.Context(), model.RoleAdmin)
	},
}

var seedUserCmd = &cobra.Command{
	Use:   "user",
	Short: "Create a regular reader account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(cmd.Context(), model.RoleUser)
	},
}

func runSeed(ctx context.Context, role string) error {
	if len(seedPassword) < utils.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", utils.MinPasswordLength)
	}
	if len(seedPassword) > utils.MaxPasswordLength {
		return fmt.Errorf("password must be at most %d bytes", utils.MaxPasswordLength)
	}
	cfg, log := setup()

	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		return err
	}

	auth := service.NewAuthService(repository.NewUserRepo(db), nil, log)
	u, err := auth.CreateUser(ctx, service.NewUser{
		Email:     seedEmail,
		Password:  seedPassword,
		FirstName: seedFirstName,
		LastName:  seedLastName,
		Role:      role,
	})
	if err != nil {
		return fmt.Errorf("create %s %q: %w", role, seedEmail, err)
	}
	log.Info("account created", "id", u.ID, "email", u.Email, "role", u.Role)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{seedAdminCmd, seedUserCmd} {
		c.Flags().StringVar(&seedEmail, "email", "", "Account email (required)")
		c.Flags().StringVar(&seedPassword, "password", "", "Plain-text password, at least 8 characters (required)")
		c.Flags().StringVar(&seedFirstName, "first-name", "Library", "Given name")
		c.Flags().StringVar(&seedLastName, "last-name", "Admin", "Family name")
		_ = c.MarkFlagRequired("email")
		_ = c.MarkFlagRequired("password")
		seedCmd.AddCommand(c)
	}
	rootCmd.AddCommand(seedCmd)
}
