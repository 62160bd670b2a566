// A JSON-RPC server answering two positional-params methods:
//
//	example_fn1 takes [uint32, bool] and echoes its params.
//	example_fn2 takes [uint64] and echoes its params.
//
// Run and call it with example/client or example/batch.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"

	"github.com/mnehpets/rpcserve/jsonrpc"
)

type exampleHandler struct{}

func (exampleHandler) Handle(_ context.Context, method string, params json.RawMessage) (any, *jsonrpc.Error) {
	switch method {
	case "example_fn1":
		var n uint32
		var flag bool
		if err := decodePositional(params, &n, &flag); err != nil {
			return nil, jsonrpc.InvalidParams()
		}
		return []any{n, flag}, nil
	case "example_fn2":
		var n uint64
		if err := decodePositional(params, &n); err != nil {
			return nil, jsonrpc.InvalidParams()
		}
		return []any{n}, nil
	default:
		return nil, jsonrpc.UnknownMethod()
	}
}

// decodePositional unpacks a JSON array of params into targets, requiring an
// exact element count.
func decodePositional(params json.RawMessage, targets ...any) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(params, &elems); err != nil {
		return err
	}
	if len(elems) != len(targets) {
		return errors.New("wrong number of params")
	}
	for i, elem := range elems {
		if err := json.Unmarshal(elem, targets[i]); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	addr := os.Getenv("RPC_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	log.Println("Starting JSON-RPC server on", addr)
	log.Fatal(jsonrpc.ListenAndServe(addr, exampleHandler{}))
}
