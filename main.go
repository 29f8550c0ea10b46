package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	logLevel string

	cfg    *Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "uftp",
	Short: "File transfer over a reliable UDP message transport",
	Long: `uftp moves files between a server directory and a client over UDP or
SCION using a Go-Back-N transport. Without a subcommand it runs the role
named in the config file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logger, err = setupLogger(cfg.Log)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch cfg.Role {
		case "server":
			return runServer(cfg)
		default:
			return runREPL(cfg, cfg.Remote)
		}
	},
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve root_dir until the channel fails",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cfg)
	},
}

var clientCmd = &cobra.Command{
	Use:   "client [remote]",
	Short: "Open an interactive session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runREPL(cfg, remoteArg(args, 0))
	},
}

var getCmd = &cobra.Command{
	Use:   "get <file> [remote]",
	Short: "Fetch a file into the working directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(cfg, remoteArg(args, 1), "get "+args[0])
	},
}

var putCmd = &cobra.Command{
	Use:   "put <file> [remote]",
	Short: "Store a local file on the server",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(cfg, remoteArg(args, 1), "put "+args[0])
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <file> [remote]",
	Short: "Delete a file on the server",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(cfg, remoteArg(args, 1), "delete "+args[0])
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls [remote]",
	Short: "List the server's files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(cfg, remoteArg(args, 0), "ls")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "location of the config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
	rootCmd.AddCommand(serverCmd, clientCmd, getCmd, putCmd, rmCmd, lsCmd)
}

func remoteArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return cfg.Remote
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func checkNonFatal(e error) {
	if e != nil {
		log.Println(e)
	}
}

func check(e error) {
	if e != nil {
		log.Fatal(e)
	}
}
