package main

import (
	"os"

	"github.com/lobkit/identity/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
