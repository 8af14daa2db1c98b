package locks

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/datastore"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/imagelock"
)

// Command creates the locks subcommand group for inspecting and force
// releasing image locks.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locks",
		Short: "Inspect and manage image locks",
	}
	cmd.AddCommand(listCommand(settings), releaseCommand(settings))
	return cmd
}

func openManager(settings *conf.Settings) (*imagelock.Manager, datastore.Interface, error) {
	store, err := datastore.New(settings)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Open(); err != nil {
		return nil, nil, err
	}
	return imagelock.NewManager(store, settings, nil), store, nil
}

func listCommand(settings *conf.Settings) *cobra.Command {
	var projectID uint

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active locks for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, store, err := openManager(settings)
			if err != nil {
				return err
			}
			defer store.Close()

			locks, err := manager.ListActive(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			if len(locks) == 0 {
				fmt.Println("No active locks")
				return nil
			}
			for i := range locks {
				fmt.Printf("image %d locked by %s, expires %s\n",
					locks[i].ImageID, locks[i].UserID,
					locks[i].ExpiresAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().UintVar(&projectID, "project", 0, "Project ID")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func releaseCommand(settings *conf.Settings) *cobra.Command {
	var projectID, imageID uint

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Force release an image lock regardless of owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, store, err := openManager(settings)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := manager.ForceRelease(cmd.Context(), projectID, imageID)
			if err != nil {
				return err
			}
			fmt.Printf("image %d: %s\n", imageID, res.Outcome)
			return nil
		},
	}

	cmd.Flags().UintVar(&projectID, "project", 0, "Project ID")
	cmd.Flags().UintVar(&imageID, "image", 0, "Image ID")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}
