// Package automation implements threshold rules over telemetry channels.
//
// A Rule watches one channel and, when its Condition is met, writes DoValue
// to another channel and publishes a command for it. Five condition kinds
// exist:
//
//   - bang-bang: fires on every value at or above a threshold
//   - range: fires on every value inside [min, max]
//   - delayed: arms on a value at or above a threshold, fires after a delay
//   - rising / falling: fire once when consecutive values cross a threshold
//
// Rules are held by a Registry that persists them through a Repository
// (SQLite in production) and serves lock-free snapshots to the Engine.
// The Engine evaluates each ingested value against the rules watching its
// channel, using the previous value from a Tracker for edge detection.
//
// Delayed rules are tracked per (watch, do) key. A second qualifying value
// while the rule is pending is ignored; the key is released after the
// trigger fires or is cancelled.
package automation
