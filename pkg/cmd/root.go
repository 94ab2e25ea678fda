package cmd

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var RootCmd = &cobra.Command{
	Use:   "mangogate",
	Short: "mango perp gateway",
	Long:  "rest gateway for the mango v4 perpetual futures venue",

	// SilenceUsage is an option to silence usage when an error occurs.
	SilenceUsage: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().Bool("debug", false, "debug flag")
	RootCmd.PersistentFlags().String("config", "config.yaml", "config file")

	cobra.OnInitialize(func() {
		if err := viper.BindPFlags(RootCmd.PersistentFlags()); err != nil {
			log.WithError(err).Error("flag binding error")
		}

		if viper.GetBool("debug") {
			log.SetLevel(log.DebugLevel)
		}
	})
}

func Execute() {
	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			log.WithError(err).Error("can not load .env.local")
		}
	}

	log.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp: true,
	})

	log.WithField("environment", environment).Debug("starting")

	if err := RootCmd.Execute(); err != nil {
		log.WithError(err).Fatal("command execution error")
	}
}
