package main

import (
	"log"

	"github.com/thiagokokada/cgraph-go/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		log.Fatalf("cgraph: %v", err)
	}
}
