package main

import (
	"github.com/joho/godotenv"

	"leavedesk/internal/app/server"
)

func main() {
	// Optional; deployments without a .env file fall back to the process env.
	_ = godotenv.Load()

	server.Run()
}
