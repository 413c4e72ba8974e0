// Package commands implements the flagctl maintenance CLI.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"vexillum/internal/config"
	"vexillum/internal/database"
	"vexillum/internal/server"
	"vexillum/internal/service"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// Env is what a command runs against.
type Env struct {
	Config      *config.Config
	DB          *gorm.DB
	Maintenance *service.MaintenanceService
	// Close releases the connections; nil when the caller owns them.
	Close func() error
}

// Connector opens an Env. Tests swap in an in-memory database.
type Connector func(ctx context.Context) (*Env, error)

// Connect loads the configuration and opens the database and storage.
func Connect(ctx context.Context) (*Env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	store, err := server.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	images := service.NewImageService(store, cfg.MaxUploadMB)
	return &Env{
		Config:      cfg,
		DB:          db,
		Maintenance: service.NewMaintenanceService(db, images),
		Close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}, nil
}

type cli struct {
	connect    Connector
	env        *Env
	jsonOutput bool
}

// NewRootCmd builds the command tree on top of connect.
func NewRootCmd(connect Connector) *cobra.Command {
	c := &cli{connect: connect}

	root := &cobra.Command{
		Use:   "flagctl",
		Short: "Vexillum maintenance tool",
		Long: `flagctl runs one-off maintenance against the Vexillum database.

Commands:
  migrate              Apply schema migrations
  backfill-public-ids  Give designs without a public id a fresh one
  dedupe-designs       Merge duplicated designs
  dedupe-posts         Merge duplicated posts
  promote-first-admin  Make the oldest account an admin
  list-admins          List admin accounts
  promote / demote     Set a user's admin flag`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			env, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			c.env = env
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if c.env == nil || c.env.Close == nil {
				return nil
			}
			return c.env.Close()
		},
	}
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "Output in JSON format")

	root.AddCommand(
		c.migrateCmd(),
		c.backfillCmd(),
		c.dedupeDesignsCmd(),
		c.dedupePostsCmd(),
		c.promoteFirstAdminCmd(),
		c.listAdminsCmd(),
		c.setAdminCmd("promote", true),
		c.setAdminCmd("demote", false),
	)
	return root
}

// Execute runs flagctl with the process arguments.
func Execute() {
	root := NewRootCmd(Connect)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (c *cli) isSQLite() bool {
	return c.env.Config != nil && strings.EqualFold(c.env.Config.DBDriver, "sqlite")
}

// print writes v as JSON when --json is set, otherwise text.
func (c *cli) print(w io.Writer, v interface{}, text string) error {
	if c.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
