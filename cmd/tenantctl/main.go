// Command tenantctl is the operator CLI for tenantgate. It migrates the
// schema, seeds the default administrator and manages tenant approval
// directly against the database.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
