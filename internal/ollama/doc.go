// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the Ollama API and the
// engine that ingests its streaming chat responses.
//
// # Key Types
//
//   - Client: capability probe, model listing, streaming chat, context clear
//   - Engine: turns a chunked NDJSON response body into content deltas
//   - ClientError: typed error with ErrTypeConnection / ErrTypeStream
//   - StreamStats: timing and token counters from the final record
//
// # Usage
//
//	client := ollama.NewClient("http://localhost:11434")
//	if client.Probe(ctx) != model.Connected {
//	    return
//	}
//	engine, err := client.StreamChat(ctx, "llama3.2", history, systemPrompt)
//	if err != nil {
//	    return err // ConnectionError: nothing was streamed
//	}
//	defer engine.Close()
//	for delta, err := range engine.All() {
//	    if err != nil {
//	        return err // partial output already delivered stays delivered
//	    }
//	    fmt.Print(delta)
//	}
//
// # Stream Ingestion
//
// The Engine keeps one piece of state: the tail of decoded text that has
// not yet seen a newline. Records are parsed only once complete, so the
// deltas produced never depend on how the transport chunked the body.
// Malformed records are skipped. An engine is single-pass.
package ollama
