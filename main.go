package main

import (
	"github.com/joho/godotenv"

	"github.com/sadopc/worktime/internal/commands"
)

func main() {
	// A missing .env is fine; WORKTIME_* variables may come from anywhere.
	_ = godotenv.Load()

	commands.Execute()
}
