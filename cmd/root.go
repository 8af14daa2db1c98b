package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/cmd/diff"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/cmd/images"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/cmd/locks"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/cmd/migrate"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/cmd/publish"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/cmd/status"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
)

// Build information, overridden at build time via -ldflags.
var (
	buildVersion = "dev"
	buildDate    = "unknown"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "labeler",
		Short: "Collaborative image annotation backend CLI",
	}

	setupFlags(rootCmd, settings, &configPath)

	versionCmd := versionCommand()

	subcommands := []*cobra.Command{
		migrate.Command(settings),
		publish.Command(settings),
		diff.Command(settings),
		images.Command(settings),
		locks.Command(settings),
		status.Command(settings),
		versionCmd,
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		if configPath != "" {
			loaded, err := conf.LoadFile(configPath)
			if err != nil {
				return err
			}
			*settings = *loaded
		}
		return conf.ValidateSettings(settings)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings, configPath *string) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(configPath, "config", "", "Path to a config file (overrides the default search paths)")
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("labeler %s (built %s, %s)\n", buildVersion, buildDate, runtime.Version())
		},
	}
}
