package main

import (
	"os"

	"github.com/authgrid/authgrid/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
