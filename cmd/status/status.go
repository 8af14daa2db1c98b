package status

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/datastore"
)

// Command creates the status subcommand, which prints the annotation
// rollup for every tracked image in a project.
func Command(settings *conf.Settings) *cobra.Command {
	var projectID uint
	var taskType string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-image annotation status for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := datastore.New(settings)
			if err != nil {
				return err
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer store.Close()

			var task *string
			if cmd.Flags().Changed("task") {
				task = &taskType
			}
			statuses, err := store.ListImageStatuses(cmd.Context(), projectID, task)
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				fmt.Println("No annotated images")
				return nil
			}
			for i := range statuses {
				s := &statuses[i]
				task := s.TaskType
				if task == "" {
					task = "(untagged)"
				}
				confirmed := " "
				if s.IsImageConfirmed {
					confirmed = "*"
				}
				fmt.Printf("%s image %d %s: %s, %d/%d confirmed\n",
					confirmed, s.ImageID, task, s.Status,
					s.ConfirmedAnnotations, s.TotalAnnotations)
			}
			return nil
		},
	}

	cmd.Flags().UintVar(&projectID, "project", 0, "Project ID")
	cmd.Flags().StringVar(&taskType, "task", "", "Restrict to one task type partition (pass an empty value for the untagged partition)")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}
