package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/datastore"
)

// Command creates the migrate subcommand, which opens the labeler database
// and brings its schema up to date.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the labeler database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := datastore.New(settings)
			if err != nil {
				return err
			}
			if err := store.Open(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			defer store.Close()

			// The platform schema is owned by the platform service; just
			// verify the connection works.
			platform, err := datastore.NewPlatform(settings)
			if err != nil {
				return err
			}
			if err := platform.Open(); err != nil {
				return fmt.Errorf("platform database check failed: %w", err)
			}
			defer platform.Close()

			fmt.Println("Database schema is up to date")
			return nil
		},
	}
}
