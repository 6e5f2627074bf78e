// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the game handler.
const (
	InvalidGameIDError   = 3003 // Game id in the URL path is missing or malformed.
	InvalidPlayerIDError = 3002 // No player id could be established for the connection.
)
