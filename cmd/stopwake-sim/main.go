// Command stopwake-sim boots the wake controller against the simulated
// STM32F3 and reports what the wake cycle did.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
