package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/cmd"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/datastore"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/logging"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if settings.Main.Log.Enabled {
		level := slog.Leveler(slog.LevelInfo)
		if settings.Debug {
			level = slog.LevelDebug
		}
		fileLogger, closeLogger, err := logging.NewFileLogger(settings.Main.Log.Path, "datastore", level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error opening log file %s: %v\n", settings.Main.Log.Path, err)
			os.Exit(1)
		}
		defer closeLogger()
		datastore.SetLogger(fileLogger)
	}

	if err := cmd.RootCommand(settings).Execute(); err != nil {
		os.Exit(1)
	}
}
