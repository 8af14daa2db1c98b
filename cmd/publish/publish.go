package publish

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/datastore"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/objectstore"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/version"
)

// Command creates the publish subcommand, which freezes the confirmed
// annotation set of a project/task into a new version.
func Command(settings *conf.Settings) *cobra.Command {
	req := &version.PublishRequest{}
	var presign, doExport bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an immutable annotation version for a project/task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if doExport && req.ExportFormat == "" {
				req.ExportFormat = settings.Export.DefaultFormat
			}

			store, err := datastore.New(settings)
			if err != nil {
				return err
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer store.Close()

			var platform datastore.PlatformInterface
			var objects objectstore.Store
			if req.ExportFormat != "" {
				platform, err = datastore.NewPlatform(settings)
				if err != nil {
					return err
				}
				if err := platform.Open(); err != nil {
					return err
				}
				defer platform.Close()

				objects, err = objectstore.NewDiskStore(settings)
				if err != nil {
					return err
				}
			}

			publisher := version.NewPublisher(store, platform, objects, settings, nil)
			v, err := publisher.Publish(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Printf("Published %s: %d annotations across %d images\n",
				v.VersionNumber, v.AnnotationCount, v.ImageCount)
			if v.ExportPath != "" {
				fmt.Printf("Export artifact: %s\n", v.ExportPath)
			}

			if presign && v.ExportPath != "" {
				attached, err := publisher.AttachDownloadURL(cmd.Context(), v.ID)
				if err != nil {
					return err
				}
				fmt.Printf("Download URL: %s (expires %s)\n",
					attached.DownloadURL, attached.DownloadExpiresAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().UintVar(&req.ProjectID, "project", 0, "Project ID to publish")
	cmd.Flags().StringVar(&req.TaskType, "task", "", "Task type partition (empty for untagged)")
	cmd.Flags().StringVar(&req.VersionNumber, "version", "", "Version number (auto-generated when omitted)")
	cmd.Flags().StringVar(&req.Description, "description", "", "Version description")
	cmd.Flags().BoolVar(&doExport, "export", false, "Export using the configured default format")
	cmd.Flags().StringVar(&req.ExportFormat, "format", "", "Export format (e.g. coco-json), implies --export")
	cmd.Flags().BoolVar(&req.IncludeDraft, "include-draft", false, "Include draft annotations in the snapshot")
	cmd.Flags().StringVar(&req.UserID, "user", "", "User recorded as the publisher")
	cmd.Flags().BoolVar(&presign, "presign", false, "Print a presigned download URL for the export artifact")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}
