// Package respond writes uniform JSON responses.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/wb-go/wbf/zlog"
)

type successBody struct {
	Data interface{} `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
}

// OK writes a 200 response with the data wrapped in a success envelope.
func OK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, successBody{Data: data})
}

// Created writes a 201 response with the data wrapped in a success envelope.
func Created(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, successBody{Data: data})
}

// Fail writes an error response with the given status code.
func Fail(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to encode response body")
	}
}
