// walletgatectl exercises the identity reconciler from a terminal: connect a
// wallet bridge, log in, inspect session state, and log out. It keeps its
// session record in a local badger store so consecutive invocations behave
// like one browsing session.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Optional; running without a .env file is the normal case.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
