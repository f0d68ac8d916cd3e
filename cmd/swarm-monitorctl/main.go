package main

import (
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/ctl"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	if err := ctl.Execute(); err != nil {
		panic(err)
	}
}
