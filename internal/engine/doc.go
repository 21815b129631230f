// Package engine contains the game loop and simulation logic.
//
// Engine owns every model (player, economy, combat, prestige) behind one
// mutex. Step advances resources then combat by dt seconds; actions and
// snapshots take the same lock, so a snapshot never observes half a tick.
// Ticker drives Step from a clock and Autosaver persists snapshots on its
// own cadence.
package engine
