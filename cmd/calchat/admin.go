package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/soypete/calchat/pkg/database"
)

func eventTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "event-types",
		Short: "List the Cal.com event types of the account",
		Long: `List the event types of the configured Cal.com account.

Set calcom.default_event_type_id (or CAL_EVENT_TYPE_ID) to one of the IDs
below so the assistant can book without asking.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			c, err := buildContainer(ctx, cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			types, err := c.Provider().ListEventTypes(ctx)
			if err != nil {
				return err
			}

			defaultID := c.Config().CalCom.DefaultEventTypeID
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSLUG\tLENGTH\tTITLE\t")
			for _, et := range types {
				marker := ""
				if et.ID == defaultID {
					marker = "(default)"
				}
				fmt.Fprintf(w, "%d\t%s\t%dm\t%s\t%s\n", et.ID, et.Slug, et.Length, et.Title, marker)
			}
			return w.Flush()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply audit log database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			db, err := database.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(ctx); err != nil {
				return err
			}
			v, err := db.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s audit schema at version %d\n", db.Driver(), v)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("calchat %s\n", version)
		},
	}
}
