package main

import (
	"log"

	"github.com/joho/godotenv"

	"jobnest-auth/internal/config"
	"jobnest-auth/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if err := server.Run(cfg); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
