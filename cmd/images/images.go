package images

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/datastore"
)

// Command creates the images subcommand, which lists a project's images
// from the platform database along with any active lock holder.
func Command(settings *conf.Settings) *cobra.Command {
	var projectID, datasetID uint

	cmd := &cobra.Command{
		Use:   "images",
		Short: "List a project's images with lock holders",
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := datastore.NewPlatform(settings)
			if err != nil {
				return err
			}
			if err := platform.Open(); err != nil {
				return err
			}
			defer platform.Close()

			store, err := datastore.New(settings)
			if err != nil {
				return err
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer store.Close()

			if cmd.Flags().Changed("dataset") {
				dataset, err := platform.GetDataset(cmd.Context(), datasetID)
				if err != nil {
					return err
				}
				fmt.Printf("Dataset %d: %s\n", dataset.ID, dataset.Name)
			}

			images, err := platform.ListProjectImages(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			if len(images) == 0 {
				fmt.Println("No images")
				return nil
			}

			locks, err := store.ListImageLocks(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			holders := make(map[uint]string, len(locks))
			for i := range locks {
				holders[locks[i].ImageID] = lockHolder(cmd, platform, locks[i].UserID)
			}

			for i := range images {
				img := &images[i]
				line := fmt.Sprintf("image %d %s (%dx%d)", img.ID, img.FileName, img.Width, img.Height)
				if holder, ok := holders[img.ID]; ok {
					line += fmt.Sprintf(" — locked by %s", holder)
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().UintVar(&projectID, "project", 0, "Project ID")
	cmd.Flags().UintVar(&datasetID, "dataset", 0, "Print the dataset header for this dataset ID")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

// lockHolder resolves a lock's user ID to a display name, falling back to
// the raw ID when the platform no longer knows the user.
func lockHolder(cmd *cobra.Command, platform datastore.PlatformInterface, userID string) string {
	user, err := platform.GetUser(cmd.Context(), userID)
	if err != nil {
		if !errors.Is(err, datastore.ErrUserNotFound) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: looking up user %s: %v\n", userID, err)
		}
		return userID
	}
	if user.Name == "" {
		return user.UserID
	}
	return user.Name
}
