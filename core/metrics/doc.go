package metrics

// Package metrics defines the sinks that observe compile and solve runs.
// Every sink records RunEvents; sinks that also store the dispatch table
// implement ResultsRecorder. The factory helpers build sinks from module
// configs and return a MultiSink automatically when several are configured.
