// Package mcpconn implements the client-side connection lifecycle for Model
// Context Protocol (MCP) sessions: opening a transport, driving the
// initialize handshake, supervising the live session, and delivering
// connected/disconnected/connection-error notifications to subscribers
// exactly once per session.
//
// The package ships stdio, SSE and WebSocket transports, and any custom
// transport can be plugged in through the ClientTransport and Session
// interfaces. Request routing, capability payloads and reconnect policy are
// left to the caller; the lifecycle notifications provide the hook points.
package mcpconn
