package main

import (
	"fmt"
	"os"
)

func main() {
	if err := RootApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "itmonitor: %v\n", err)
		os.Exit(1)
	}
}
