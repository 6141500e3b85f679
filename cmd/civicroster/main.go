package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"civicroster/internal/config"
	"civicroster/internal/storage"
)

var (
	cfg      config.Config
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "civicroster",
	Short: "Builds rosters of elected city officials from saved web pages.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loaded, err := config.Load()
		must(err)
		cfg = loaded
		if !cmd.Flags().Changed("log-level") {
			logLevel = cfg.LogLevel
		}
		initSlog(logLevel)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initSlog(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		l = slog.LevelInfo
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      l,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
}

func openDB() *storage.DB {
	db, err := storage.Open(cfg.DBPath)
	must(err)
	return db
}

func loadCity(path string) config.CityConfig {
	city, err := config.LoadCity(path, cfg.CityDefaults())
	must(err)
	return city
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
