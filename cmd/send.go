package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/taskmill/taskmill-go/pkg/a2a"
	"github.com/taskmill/taskmill-go/pkg/client"
)

var (
	urlFlag    string
	skillFlag  string
	taskIDFlag string

	sendCmd = &cobra.Command{
		Use:   "send [text...]",
		Short: "Send a message to a running server and print the settled task",
		Long:  longSend,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL := urlFlag

			if baseURL == "" {
				baseURL = viper.GetString("server.url")
			}

			taskID := taskIDFlag

			if taskID == "" {
				taskID = uuid.NewString()
			}

			conn := client.NewClient(baseURL)

			task, err := conn.SendTask(a2a.TaskSendParams{
				ID:       taskID,
				Message:  *a2a.NewTextMessage(a2a.RoleUser, strings.Join(args, " ")),
				Metadata: map[string]any{"skillId": skillFlag},
			})

			if err != nil {
				return err
			}

			if reply := task.LastMessage(); reply != nil {
				log.Info("agent replied", "task", task.ID, "text", reply.String())
			}

			fmt.Println(task.String())

			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&urlFlag, "url", "", "Base URL of the server (defaults to server.url from config)")
	sendCmd.Flags().StringVar(&skillFlag, "skill", "greet", "Skill to invoke")
	sendCmd.Flags().StringVar(&taskIDFlag, "task-id", "", "Task id to use (a random id is generated when omitted)")
}

var longSend = `
Send one message to a running taskmill server and print the settled task,
including its history and artifacts.

Examples:
  # Greet via the default skill
  taskmill send World

  # Invoke a specific skill on a specific server
  taskmill send --url http://localhost:8080 --skill greet World
`
