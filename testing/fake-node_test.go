package yvtesting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JsonRpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// A JSON-RPC endpoint that records every call and answers from a canned table
type fakeNode struct {
	lock    sync.Mutex
	calls   []rpcRequest
	results map[string]any
	errors  map[string]string
}

func newFakeNode(clientVersion string) *fakeNode {
	return &fakeNode{
		results: map[string]any{
			"web3_clientVersion": clientVersion,
			"evm_snapshot":       "0x1",
			"evm_revert":         true,
			"eth_blockNumber":    "0x10",
			"eth_getBalance":     "0x0",
		},
		errors: map[string]string{},
	}
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.lock.Lock()
	n.calls = append(n.calls, req)
	response := rpcResponse{
		JsonRpc: "2.0",
		ID:      req.ID,
	}
	if message, exists := n.errors[req.Method]; exists {
		response.Error = &rpcError{Code: -32000, Message: message}
	} else if result, exists := n.results[req.Method]; exists {
		response.Result = result
	} else {
		response.Result = true
	}
	n.lock.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func (n *fakeNode) setResult(method string, result any) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.results[method] = result
}

func (n *fakeNode) setError(method string, message string) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.errors[method] = message
}

// Get every recorded call to a method
func (n *fakeNode) callsTo(method string) []rpcRequest {
	n.lock.Lock()
	defer n.lock.Unlock()
	matches := []rpcRequest{}
	for _, call := range n.calls {
		if call.Method == method {
			matches = append(matches, call)
		}
	}
	return matches
}

// Start a fake node and connect a manager to it
func startFakeNode(t *testing.T, clientVersion string) (*fakeNode, *ForkTestManager) {
	node := newFakeNode(clientVersion)
	server := httptest.NewServer(node)
	t.Cleanup(server.Close)

	mgr, err := NewForkTestManager(context.Background(), server.URL, 13200*time.Millisecond, nil)
	require.NoError(t, err)
	t.Cleanup(mgr.Close)
	return node, mgr
}

func decodeString(t *testing.T, raw json.RawMessage) string {
	var value string
	require.NoError(t, json.Unmarshal(raw, &value))
	return value
}

func decodeAddress(t *testing.T, raw json.RawMessage) common.Address {
	var address common.Address
	require.NoError(t, json.Unmarshal(raw, &address))
	return address
}

func testAddress(index int) common.Address {
	return common.HexToAddress(fmt.Sprintf("0x%040x", 0x1000+index))
}
