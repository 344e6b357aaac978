/*
Package server implements the msgpack IPC surface for the completion engine.

The protocol is a request/response stream of binary msgpack messages over
stdin/stdout. Each request carries an ID echoed back in the response, a
command, and command-specific fields.

Completion requests:

	{"id": "req_001", "cmd": "complete", "p": "ca", "l": 5}

are answered with ranked completions and microsecond timing:

	{"id": "req_001", "r": [{"t": "cat", "s": 100}, {"t": "case", "s": 90}], "c": 2, "v": 7, "t": 41}

An optional boost map reorders the precomputed shortlist per request:

	{"id": "req_002", "cmd": "complete", "p": "ca", "b": {"car": 2.5}}

"stats" reports the active snapshot, "health" answers liveness probes.

A prefix that matches nothing yields an empty result list, never an error.
Error responses carry an HTTP-style code: 400 for malformed input such as an
over-long prefix, 503 while no snapshot has been installed yet (cold start).
*/
package server

// Request is the envelope for every incoming message.
type Request struct {
	ID     string             `msgpack:"id"`
	Cmd    string             `msgpack:"cmd"`
	Prefix string             `msgpack:"p"`
	Limit  int                `msgpack:"l,omitempty"`
	Boosts map[string]float64 `msgpack:"b,omitempty"`
}

// CompletionEntry is one ranked completion in a response.
type CompletionEntry struct {
	Term  string `msgpack:"t"`
	Score uint32 `msgpack:"s"`
}

// CompleteResponse answers a "complete" request.
type CompleteResponse struct {
	ID          string            `msgpack:"id"`
	Completions []CompletionEntry `msgpack:"r"`
	Count       int               `msgpack:"c"`
	Version     uint32            `msgpack:"v"`
	TimeTaken   int64             `msgpack:"t"`
}

// StatsResponse answers a "stats" request with active-snapshot figures.
type StatsResponse struct {
	ID        string `msgpack:"id"`
	Status    string `msgpack:"status"`
	Version   uint32 `msgpack:"version,omitempty"`
	TermCount uint32 `msgpack:"term_count,omitempty"`
	NodeCount int    `msgpack:"node_count,omitempty"`
	TopK      int    `msgpack:"top_k,omitempty"`
}

// HealthResponse answers a "health" request.
type HealthResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
}

// ErrorResponse carries basic error information for a failed request.
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
