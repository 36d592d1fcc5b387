package main

import (
	"os"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
