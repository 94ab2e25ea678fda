package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/c9s/mangogate/pkg/config"
	"github.com/c9s/mangogate/pkg/mango"
	"github.com/c9s/mangogate/pkg/mango/mangoapi"
	"github.com/c9s/mangogate/pkg/server"
	"github.com/c9s/mangogate/pkg/types"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the gateway api server",

	SilenceUsage: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(viper.GetString("config"))
	},
}

func init() {
	RootCmd.AddCommand(ServeCmd)
}

func serve(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	registry, err := mango.NewRegistry(cfg, func(netCfg config.NetworkConfig) types.VenueClient {
		return mangoapi.NewClient(netCfg)
	})
	if err != nil {
		return err
	}
	defer registry.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigC := make(chan os.Signal, 1)
		signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigC
		log.Infof("signal %v received, shutting down", sig)
		cancel()
	}()

	return server.New(cfg, registry).Run(ctx)
}
