// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the collection of conversation sessions.
//
// The Repository is the only writer of session records. Every mutating
// method persists the whole collection to the storage.Store before it
// returns, so a crash right after a successful call never loses the
// mutation. Apply is the exception: it mutates in memory and marks the
// repository dirty until the next Flush.
//
// # Key Types
//
//   - Repository: session collection plus the active selection
//   - ErrNotFound: returned for absent ids; callers treat it as non-fatal
//
// # Usage
//
//	repo, err := session.Open(ctx, store)
//	sess, err := repo.Create(ctx, "llama3.2")
//	err = repo.AppendMessage(ctx, sess.ID, model.NewUserMessage("hi"))
//	for _, s := range repo.List() {
//	    fmt.Println(s.Title, s.Preview())
//	}
package session
