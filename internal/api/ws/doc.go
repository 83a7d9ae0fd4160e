// Package ws streams executions over WebSocket.
//
// Client frames:
//
//	{"type":"execute","request":{"code":"print(1)","timeoutMs":500}}
//	{"type":"ping"}
//
// Server frames:
//
//	{"type":"system","message":"connected","connId":"..."}
//	{"type":"log","runId":"run_...","stream":"stdout","line":"1","timestampMs":...}
//	{"type":"result","runId":"run_...","result":{...}}
//	{"type":"pong"}
//	{"type":"error","message":"...","timestamp":...}
//
// Log frames carry only non-blank lines; the result holds the complete
// output. Several executions may run on one connection at once, and all of
// them are cancelled when the connection closes.
package ws
