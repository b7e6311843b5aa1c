// Command bands tracks a festival's lineup and the user's annotations:
// it imports the band and event CSV feeds, syncs priorities and
// attendance across devices through a shared key-value store, and
// migrates data out of the legacy storage engine.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
