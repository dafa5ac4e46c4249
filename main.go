package main

import (
	"os"

	"github.com/taskmill/taskmill-go/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
