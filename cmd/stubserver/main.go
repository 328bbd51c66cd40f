// Command stubserver starts the kensa fixture API for manual testing.
// Usage: go run ./cmd/stubserver [port]
// Default port: 9090
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/kensahq/kensa/internal/stubserver"
)

func main() {
	port := 9090

	if len(os.Args) > 1 {
		p, err := strconv.Atoi(os.Args[1])
		if err != nil || p < 1 || p > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		port = p
	}

	fmt.Printf("Fixture API listening on http://localhost:%d\n", port)
	fmt.Println("Resources: /users, /users/{id}, /posts, /posts/{id}, /healthz")

	if err := stubserver.New().ListenAndServe(port); err != nil {
		log.Fatal(err)
	}
}
