// Package bus implements the in-process notification bus.
//
// The bus broadcasts change and update events emitted by registry mutations
// to any number of live subscribers. Each subscriber receives every
// notification published after it attaches, in publish order, through an
// unbounded per-subscriber queue. There is no replay and no durability.
package bus
