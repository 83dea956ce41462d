package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/srand/jolt/workforce/pkg/host"
	"github.com/srand/jolt/workforce/pkg/log"
	"golang.org/x/sync/errgroup"
)

var config *Config

var rootCmd = &cobra.Command{
	Use:   "workforced",
	Short: "Jolt workforce host, serving worker providers to remote workforces",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		viper.SetEnvPrefix("jolt")
		viper.AutomaticEnv()

		viper.SetConfigName("workforced.yaml")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("/etc/jolt/")
		viper.AddConfigPath("$HOME/.config/jolt")
		viper.AddConfigPath(".")

		if err := viper.ReadInConfig(); err != nil {
			log.Debug(err)
		}

		verbosity, err := cmd.Flags().GetCount("verbose")
		if err != nil {
			panic(err)
		}
		log.SetVerbosity(verbosity)

		config, err = LoadConfig(viper.GetViper())
		if err != nil {
			log.Fatal(err)
		}
		config.Log()
		log.Info("Log verbosity:", log.GetLevel())
	},
	Run: func(cmd *cobra.Command, args []string) {
		catalog, err := config.Catalog(afero.NewOsFs())
		if err != nil {
			log.Fatal(err)
		}

		h, err := host.NewFromCatalog(catalog, nil)
		if err != nil {
			log.Fatal(err)
		}

		for _, p := range h.Registry().List() {
			log.Infof("Serving provider %s", p.Id())
			log.Debug(p.Attributes())
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)

		for _, uri := range config.ListenGrpc {
			g.Go(func() error {
				return serveGrpc(ctx, h, uri)
			})
		}

		for _, uri := range config.ListenHttp {
			g.Go(func() error {
				return serveHttp(ctx, h, uri)
			})
		}

		g.Go(func() error {
			<-ctx.Done()
			log.Info("Shutting down, stopping all workforces")
			h.StopAll()
			return nil
		})

		if err := g.Wait(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.Flags().StringSliceP("listen-http", "l", []string{"tcp://:8080"}, "Addresses to listen on for HTTP and websocket connections")
	rootCmd.Flags().StringSliceP("listen-grpc", "g", []string{"tcp://:9090"}, "Addresses to listen on for gRPC connections")
	rootCmd.Flags().StringP("providers", "p", "", "Provider catalog file or directory")
	rootCmd.Flags().StringSliceP("attribute", "a", nil, "Attribute added to every provider, key=value (repeatable)")
	rootCmd.Flags().CountP("verbose", "v", "Verbosity (repeatable)")

	viper.BindPFlag("listen_grpc", rootCmd.Flags().Lookup("listen-grpc"))
	viper.BindPFlag("listen_http", rootCmd.Flags().Lookup("listen-http"))
	viper.BindPFlag("providers", rootCmd.Flags().Lookup("providers"))
	viper.BindPFlag("attributes", rootCmd.Flags().Lookup("attribute"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
