package main

import (
	"os"

	"github.com/BinaryCat17/RapidServer/cmd/rapidserver/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
