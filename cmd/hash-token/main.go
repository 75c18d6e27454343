package main

import (
	"fmt"
	"log"
	"os"

	"railzway-console/shared/utils/auth"
)

// Generates the bcrypt hash for an admin API token, for the
// ADMIN_API_TOKEN_HASH environment variable.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hash-token <token>")
		os.Exit(2)
	}

	hash, err := auth.HashToken(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to hash token: %v", err)
	}

	fmt.Println(hash)
}
