package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"vexillum/internal/database"
	"vexillum/internal/service"

	"github.com/spf13/cobra"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		Long: `Apply the embedded SQL migrations on postgres, or AutoMigrate the models
on sqlite.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.isSQLite() {
				if err := database.AutoMigrate(c.env.DB); err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), map[string]string{"mode": "auto"}, "automigrations applied")
			}

			ran, err := database.RunMigrations(cmd.Context(), c.env.DB)
			if err != nil {
				return fmt.Errorf("sql migrations failed: %w", err)
			}
			names := make([]string, 0, len(ran))
			for _, m := range ran {
				names = append(names, m.String())
			}
			return c.print(cmd.OutOrStdout(), map[string]interface{}{"mode": "sql", "applied": names},
				fmt.Sprintf("applied %d migration(s)", len(ran)))
		},
	}
}

func (c *cli) backfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-public-ids",
		Short: "Give designs without a public id a fresh one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := c.env.Maintenance.BackfillPublicIDs(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), map[string]int{"updated": n},
				fmt.Sprintf("backfilled %d design(s)", n))
		},
	}
}

func reportText(kind string, r *service.DedupeReport) string {
	verb := "removed"
	if r.DryRun {
		verb = "would remove"
	}
	return fmt.Sprintf("%d duplicate %s group(s), %s %d; comments moved %d, ratings moved %d, ratings dropped %d",
		r.Groups, kind, verb, r.Removed, r.CommentsMoved, r.RatingsMoved, r.RatingsDropped)
}

func (c *cli) dedupeDesignsCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "dedupe-designs",
		Short: "Merge designs sharing title, description and creation time",
		Long: `Groups designs by (title, description, created_at) and keeps the lowest id.
Comments and ratings move to the kept design; a rating the keeper already has
from the same user is dropped.

Examples:
  flagctl dedupe-designs --dry-run   # Report without changing anything`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.env.Maintenance.DedupeDesigns(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), report, reportText("design", report))
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without changing anything")
	return cmd
}

func (c *cli) dedupePostsCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "dedupe-posts",
		Short: "Merge posts sharing title and creation time",
		Long: `Groups posts by (title, created_at) and keeps the lowest-id post with an
image, or the lowest id when none has one. Comments move to the kept post.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.env.Maintenance.DedupePosts(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), report, reportText("post", report))
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without changing anything")
	return cmd
}

func (c *cli) promoteFirstAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote-first-admin",
		Short: "Make the oldest account an admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := c.env.Maintenance.PromoteFirstAdmin(cmd.Context())
			if err != nil {
				return err
			}
			if user == nil {
				return c.print(cmd.OutOrStdout(), nil, "no users yet")
			}
			return c.print(cmd.OutOrStdout(), user,
				fmt.Sprintf("%s (ID: %d) is an admin", user.Name, user.ID))
		},
	}
}

func (c *cli) listAdminsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-admins",
		Short: "List admin accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			admins, err := c.env.Maintenance.ListAdmins(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return c.print(cmd.OutOrStdout(), admins, "")
			}
			if len(admins) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no admins found")
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL")
			for _, a := range admins {
				fmt.Fprintf(w, "%d\t%s\t%s\n", a.ID, a.Name, a.Email)
			}
			return w.Flush()
		},
	}
}

func (c *cli) setAdminCmd(use string, isAdmin bool) *cobra.Command {
	short := "Grant admin to a user"
	if !isAdmin {
		short = "Revoke admin from a user"
	}
	return &cobra.Command{
		Use:   use + " <user_id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			user, err := c.env.Maintenance.SetAdmin(cmd.Context(), uint(id), isAdmin)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), user,
				fmt.Sprintf("%s (ID: %d) admin=%t", user.Name, user.ID, user.IsAdmin))
		},
	}
}
