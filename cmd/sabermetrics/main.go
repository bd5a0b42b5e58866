package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sabermetrics",
		Short:         "Turn your listening history into a nine-track batting lineup",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(collectCmd())
	root.AddCommand(lineupCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(loginCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func collectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Log recently played tracks into the play log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd.Context())
		},
	}
}

func lineupCmd() *cobra.Command {
	var (
		mode       string
		days       int
		save       bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "lineup",
		Short: "Build a lineup snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineup(cmd.Context(), mode, days, save, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "current", "current or alltime")
	cmd.Flags().IntVar(&days, "days", 0, "trailing window in days for current mode (default: from config)")
	cmd.Flags().BoolVar(&save, "save", false, "append the snapshot to the history log")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func historyCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize access to your Spotify account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context())
		},
	}
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, false)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, true)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
