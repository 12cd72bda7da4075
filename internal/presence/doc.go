// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

// Package presence relays lobby events between the WebSocket clients
// connected to the games namespace.
//
// Every frame is a JSON envelope {"type": ..., "data": ...}. A "joined" or
// "added" frame received from one client is delivered to every other client;
// Hub.Announce delivers a frame to all of them. Delivery is best effort: each
// client has a small outbound queue and frames that do not fit are dropped.
package presence
