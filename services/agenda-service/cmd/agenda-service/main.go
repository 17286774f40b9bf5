package main

import (
	"fmt"
	"os"

	libconfig "github.com/md-rashed-zaman/nutriagenda/libs/config"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	var configFile string
	rootCmd := &cobra.Command{
		Use:           "agenda-service",
		Short:         "Nutritionist agenda: availability, slots and bookings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", ".env", "dotenv file layered under the environment")

	load := func() (config.Config, error) {
		l, err := libconfig.NewLoader(configFile)
		if err != nil {
			return config.Config{}, err
		}
		return config.Load(l)
	}
	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(migrateCmd(load))
	rootCmd.AddCommand(healthcheckCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
