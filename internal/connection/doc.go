// Package connection implements the realtime Connection Manager.
//
// The Connection Manager:
//   - Owns a single WebSocket transport and its lifecycle
//   - Reconnects after unexpected closure with exponential backoff and jitter
//   - Runs the authenticate handshake and replays channel subscriptions
//     after every successful open
//   - Buffers outbound envelopes while disconnected and flushes them FIFO
//   - Fans inbound frames out to registered event handlers
package connection
