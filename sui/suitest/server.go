// Package suitest provides an in-process Sui JSON-RPC server for tests.
package suitest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"

	"deepbook-mm/sui"
)

// Handler answers one JSON-RPC method. Returning a *sui.RPCError produces a
// JSON-RPC error object; any other error produces HTTP 500.
type Handler func(params []json.RawMessage) (any, error)

// Server is an httptest server speaking Sui JSON-RPC.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	calls    map[string][][]json.RawMessage
}

func NewServer() *Server {
	s := &Server{
		handlers: make(map[string]Handler),
		calls:    make(map[string][][]json.RawMessage),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Handle registers h for method.
func (s *Server) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// Calls returns the params of every call to method, in order.
func (s *Server) Calls(method string) [][]json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]json.RawMessage(nil), s.calls[method]...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     uint64            `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	h := s.handlers[req.Method]
	s.calls[req.Method] = append(s.calls[req.Method], req.Params)
	s.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if h == nil {
		resp["error"] = &sui.RPCError{Code: -32601, Message: "method not found: " + req.Method}
	} else {
		result, err := h(req.Params)
		var rpcErr *sui.RPCError
		switch {
		case errors.As(err, &rpcErr):
			resp["error"] = rpcErr
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		default:
			resp["result"] = result
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
