package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/bianoble/plugin-migrate/cmd/plugin-migrate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
