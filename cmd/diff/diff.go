package diff

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/datastore"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/version"
)

// Command creates the diff subcommand, which compares two published
// versions and prints the result as JSON.
func Command(settings *conf.Settings) *cobra.Command {
	var versionA, versionB, imageID uint
	var summaryOnly bool

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare two published annotation versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := datastore.New(settings)
			if err != nil {
				return err
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer store.Close()

			publisher := version.NewPublisher(store, nil, nil, settings, nil)
			differ := version.NewDiffer(publisher)

			var image *uint
			if cmd.Flags().Changed("image") {
				image = &imageID
			}

			var result any
			if summaryOnly {
				result, err = differ.CompareSummary(cmd.Context(), versionA, versionB, image)
			} else {
				result, err = differ.Compare(cmd.Context(), versionA, versionB, image)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("encoding diff result: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().UintVar(&versionA, "from", 0, "Older version ID")
	cmd.Flags().UintVar(&versionB, "to", 0, "Newer version ID")
	cmd.Flags().UintVar(&imageID, "image", 0, "Restrict the diff to one image ID")
	cmd.Flags().BoolVar(&summaryOnly, "summary", false, "Print only the aggregated summary")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
