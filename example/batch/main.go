// Issues a batch of calls against example/server in one HTTP exchange and
// prints each response in order.
package main

import (
	"context"
	"log"
	"os"

	"github.com/mnehpets/rpcserve/client"
	"github.com/mnehpets/rpcserve/jsonrpc"
)

func main() {
	url := os.Getenv("RPC_URL")
	if url == "" {
		url = "http://127.0.0.1:8080"
	}

	reqs := make([]jsonrpc.Request, 0, 3)
	for i, call := range []struct {
		method string
		params any
	}{
		{"example_fn1", []any{10, true}},
		{"example_fn2", []any{100}},
		{"nope", nil},
	} {
		req, err := jsonrpc.NewRequest(call.method, call.params)
		if err != nil {
			log.Fatal(err)
		}
		req.ID = jsonrpc.RawID(i + 1)
		reqs = append(reqs, req)
	}

	resps, err := client.BatchCall(context.Background(), url, reqs)
	if err != nil {
		log.Fatal(err)
	}
	for _, resp := range resps {
		if resp.Error != nil {
			log.Printf("id %s: error %d %s", resp.ID, resp.Error.Code, resp.Error.Message)
			continue
		}
		log.Printf("id %s: result %s", resp.ID, resp.Result)
	}
}
