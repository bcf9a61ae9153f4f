package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yeha-adry/spacetime/internal/config"
	"github.com/yeha-adry/spacetime/internal/logutil"
)

// app is the state shared by the commands of one root command.
type app struct {
	viper  *viper.Viper
	logger *zap.Logger
}

func (a *app) config() *config.Config {
	return config.FromViper(a.viper)
}

func Execute() error {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{viper: viper.New(), logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "spacetime-init",
		Short: "Experiment setup for spacetime training runs",
		Long: `A command line tool that prepares spacetime training runs.
It seeds the run, names it from its hyperparameters, creates the checkpoint
and log directories and optionally starts an MLflow tracking run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			if err := loadEnvFile(envFile); err != nil {
				return err
			}
			initConfig(a.viper)

			logger, err := logutil.New(a.viper.GetString(config.KeyLogLevel))
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}

	rootCmd.PersistentFlags().String("tracking-uri", "", "MLflow tracking URI (overrides MLFLOW_TRACKING_URI)")
	rootCmd.PersistentFlags().String("experiment-id", "", "Experiment ID (overrides MLFLOW_EXPERIMENT_ID)")
	rootCmd.PersistentFlags().String("experiment-root", "", "Workspace folder for experiments (overrides MLFLOW_EXPERIMENT_ROOT)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("env-file", ".env", "Dotenv file to load before reading the environment")
	a.viper.BindPFlag(config.KeyTrackingURI, rootCmd.PersistentFlags().Lookup("tracking-uri"))
	a.viper.BindPFlag(config.KeyExperimentID, rootCmd.PersistentFlags().Lookup("experiment-id"))
	a.viper.BindPFlag(config.KeyExperimentRoot, rootCmd.PersistentFlags().Lookup("experiment-root"))
	a.viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(newInitCmd(a))
	rootCmd.AddCommand(newNameCmd(a))
	rootCmd.AddCommand(newRunCmd(a))

	return rootCmd
}

// loadEnvFile loads path into the environment. A missing file is fine;
// variables already set win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func initConfig(v *viper.Viper) {
	v.SetEnvPrefix("MLFLOW")
	v.AutomaticEnv()

	v.BindEnv(config.KeyDatabricksHost, "DATABRICKS_HOST")
	v.BindEnv(config.KeyDatabricksToken, "DATABRICKS_TOKEN")
	v.BindEnv(config.KeyCheckpointDir, "SPACETIME_CHECKPOINT_DIR")
	v.BindEnv(config.KeyLogDir, "SPACETIME_LOG_DIR")
	v.BindEnv(config.KeyLogLevel, "SPACETIME_LOG_LEVEL")

	config.SetDefaults(v)
}
