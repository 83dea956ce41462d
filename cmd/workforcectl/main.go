package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/srand/jolt/workforce/pkg/log"
)

var rootCmd = &cobra.Command{
	Use:   "workforcectl",
	Short: "Workforce control command",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		viper.SetConfigName("workforcectl.yaml")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("/etc/jolt/")
		viper.AddConfigPath("$HOME/.config/jolt")
		viper.AddConfigPath(".")
		viper.ReadInConfig()

		viper.SetEnvPrefix("jolt")
		viper.AutomaticEnv()

		verbosity, err := cmd.Flags().GetCount("verbose")
		if err == nil {
			log.SetVerbosity(verbosity)
		}

		config, err := ParseConfig(viper.GetViper())
		if err != nil {
			log.Fatal(err)
		}
		configData = *config
	},
}

var configData = ControlConfig{}

func main() {
	rootCmd.PersistentFlags().StringP("host-uri", "H", "tcp://localhost", "Workforce host URI")
	rootCmd.PersistentFlags().StringP("transport", "t", "ws", "Channel transport (ws, grpc)")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Verbosity (repeatable)")
	viper.BindPFlag("host_uri", rootCmd.PersistentFlags().Lookup("host-uri"))
	viper.BindPFlag("transport", rootCmd.PersistentFlags().Lookup("transport"))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
