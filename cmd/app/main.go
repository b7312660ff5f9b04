package main

import (
	"os"

	"emergencyDashboard/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		os.Exit(1)
	}
}
