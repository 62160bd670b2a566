// Calls the two methods served by example/server and prints the results.
package main

import (
	"context"
	"log"
	"os"

	"github.com/mnehpets/rpcserve/client"
)

func main() {
	url := os.Getenv("RPC_URL")
	if url == "" {
		url = "http://127.0.0.1:8080"
	}

	ctx := context.Background()

	result, err := client.Call(ctx, url, "example_fn1", []any{10, true})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("example_fn1: %s", result)

	result, err = client.Call(ctx, url, "example_fn2", []any{100})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("example_fn2: %s", result)
}
