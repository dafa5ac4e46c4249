package service

import (
	"context"
	"fmt"

	"github.com/taskmill/taskmill-go/pkg/skills"
)

/*
RegisterDemoSkills wires the reference skills used by the default server:
a greeter that answers in one shot and an echo that streams its reply word
by word.  They demonstrate both result shapes and make the out-of-the-box
experience pleasant.
*/
func RegisterDemoSkills(registry *skills.Registry) {
	registry.Register(&skills.Skill{
		ID:          "greet",
		Name:        "Greeter",
		Description: "Greets whoever is named in the first text part.",
		Tags:        []string{"demo"},
		Bindings:    []skills.Binding{skills.BindText()},
		Handler: func(ctx context.Context, args []any) (skills.Result, error) {
			name, _ := args[0].(string)

			if name == "" {
				name = "there"
			}

			return skills.Immediate(fmt.Sprintf("Hello, %s!", name)), nil
		},
	})

	registry.Register(&skills.Skill{
		ID:          "echo-stream",
		Name:        "Streaming Echo",
		Description: "Echoes the input back one rune at a time.",
		Tags:        []string{"demo"},
		Streaming:   true,
		Handler: func(ctx context.Context, args []any) (skills.Result, error) {
			text, _ := args[0].(string)
			out := make(chan string)

			go func() {
				defer close(out)

				for _, r := range text {
					select {
					case out <- string(r):
					case <-ctx.Done():
						return
					}
				}
			}()

			return skills.Streamed(out), nil
		},
	})
}
