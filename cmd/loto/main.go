package main

import (
	"github.com/joho/godotenv"

	"github.com/minhtien379/Loto/internal/cli"
)

func main() {
	_ = godotenv.Load()
	cli.Execute()
}
