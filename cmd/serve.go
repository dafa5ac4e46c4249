package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/taskmill/taskmill-go/pkg/service"
	"github.com/taskmill/taskmill-go/pkg/skills"
	"github.com/taskmill/taskmill-go/pkg/tasks"
)

var (
	portFlag int
	hostFlag string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the task lifecycle API",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := skills.NewRegistry()
			service.RegisterDemoSkills(registry)

			card := registry.Card(
				viper.GetString("server.name"),
				viper.GetString("server.url"),
				viper.GetString("server.version"),
			)

			srv := service.NewServer(card, tasks.NewManager(nil, registry))

			return srv.Start(fmt.Sprintf("%s:%d", hostFlag, portFlag))
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 3210, "Port to serve on")
	serveCmd.Flags().StringVarP(&hostFlag, "host", "H", "0.0.0.0", "Host address to bind to")
}

var longServe = `
Serve the task lifecycle API over HTTP.

Examples:
  # Serve on the default port
  taskmill serve

  # Serve on port 8080
  taskmill serve --port 8080
`
