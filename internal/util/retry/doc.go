// Package retry runs operations under a bounded backoff [Policy] and polls
// conditions until they hold.
//
// [Do] stops early on errors marked with [Fatal]. [Poll] returns [ErrTimeout]
// when its deadline passes first. Hetzner Cloud calls and the task queue both
// go through Do.
package retry
