// A bearer-token protected JSON-RPC server.
//
// Configuration comes from the environment (a .env file is loaded when
// present):
//
//	RPC_ADDR   listen address (default 127.0.0.1:8080)
//	RPC_TOKEN  the shared-secret bearer token clients must present
//
// Call it with:
//
//	client.Call(ctx, url, "whoami", nil, client.WithToken(token))
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/mnehpets/rpcserve/auth"
	"github.com/mnehpets/rpcserve/endpoint"
	"github.com/mnehpets/rpcserve/jsonrpc"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded:", err)
	}

	addr := os.Getenv("RPC_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	token := os.Getenv("RPC_TOKEN")
	if token == "" {
		log.Fatal("RPC_TOKEN must be set")
	}

	r := jsonrpc.NewRegistry()
	r.Register("whoami", jsonrpc.Method(func(ctx context.Context, _ struct{}) (any, *jsonrpc.Error) {
		return "authenticated", nil
	}))
	r.Register("sum", jsonrpc.Method(func(ctx context.Context, nums []json.Number) (any, *jsonrpc.Error) {
		total := 0.0
		for _, n := range nums {
			f, err := n.Float64()
			if err != nil {
				return nil, jsonrpc.InvalidParams()
			}
			total += f
		}
		return total, nil
	}))

	verifier := auth.NewStaticVerifier(token)
	http.Handle("/rpc", endpoint.Handler(
		jsonrpc.NewServerEndpoint(r).Endpoint,
		auth.Bearer(verifier),
	))

	log.Println("Starting authenticated JSON-RPC server on", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
