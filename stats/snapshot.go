/**
 * Copyright (c) 2024, The Hemera Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package stats

import jsoniter "github.com/json-iterator/go"

var snapshotJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is a plain, JSON-encodable copy of a Pool's counters, suitable
// for a debug endpoint or a log line.
type Snapshot struct {
	Name string `json:"name"`

	WorkersAlive   int64 `json:"workers_alive"`
	WorkersCreated int64 `json:"workers_created"`
	WorkersKilled  int64 `json:"workers_killed"`

	TasksSubmitted int64 `json:"tasks_submitted"`
	TasksCompleted int64 `json:"tasks_completed"`
	TasksCancelled int64 `json:"tasks_cancelled"`
	TasksPanicked  int64 `json:"tasks_panicked"`
	TasksRejected  int64 `json:"tasks_rejected"`
}

// MarshalJSON encodes the snapshot using the jsoniter codec so that
// marshaling Pool snapshots stays on the same encoder the rest of this
// module uses for JSON round-tripping, rather than mixing in the standard
// library's.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type alias Snapshot
	return snapshotJSON.Marshal(alias(s))
}
