// Package websocket provides the live WebSocket transport for Yinsh sessions.
//
// The websocket package implements:
//   - Seat-token handshake (401 on a bad token, 404 on an unknown session)
//   - One seat per connection, replacing any previous holder of the seat
//   - Move submission over the socket
//   - State broadcast to both seats after each committed move
//   - Rejections delivered to the sender only
//
// Architecture:
//
// A central Hub tracks connections per session in its own goroutine. Each
// Client is a session.Notifier: the session calls it while holding its lock,
// so the client only queues the message and a dedicated write pump sends it.
// A client whose queue fills up is dropped.
//
// Message Protocol:
//
// Client to server:
//
//	{"type":"move","move":{"player":"WHITE","kind":"PLACE_RING","data":{"target_position":{"q":0,"r":0,"s":0}}}}
//
// Server to client:
//
//	{"type":"state","session_id":"ab12","state":{...}}
//	{"type":"invalid_move","session_id":"ab12","move":{...},"state":{...},"reason":"...","code":"occupied"}
//	{"type":"error","session_id":"ab12","reason":"..."}
//
// Usage:
//
//	hub := websocket.NewHub(gameService, seatIssuer)
//	go hub.Run(ctx)
//
//	router.Handle("/ws", hub)
//
// Connection Lifecycle:
//
// 1. Client obtains a seat token and connects with ?session=<id>&token=<token>
// 2. Connection registered with the hub and seated in the session
// 3. Current state sent to the client
// 4. Client sends moves, receives state updates
// 5. Disconnection unseats the client
package websocket
