// Package realtime carries the engine's bus messages to live listeners.
//
// Every publisher implements notify.Publisher and sits behind a notify.Bus,
// which never blocks the dispatch path. Memory serves subscribers in the same
// process, Redis publishes one pub/sub channel per recipient, and Kafka
// writes to a topic keyed by recipient. New picks one from Config.
package realtime
