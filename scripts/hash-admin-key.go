//go:build ignore

// Generates a bcrypt hash for ADMIN_API_KEY_HASH. Without an argument a
// random key is generated and printed alongside its hash.
package main

import (
	"fmt"
	"os"

	"github.com/auth247/pin-server-go/internal/util"
)

func main() {
	var key string
	if len(os.Args) >= 2 {
		key = os.Args[1]
	} else {
		generated, err := util.GenerateToken()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		key = generated
		fmt.Printf("ADMIN_API_KEY=%s\n", key)
	}

	hash, err := util.HashPassword(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("ADMIN_API_KEY_HASH=%s\n", hash)
}
