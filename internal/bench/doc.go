// Package bench implements the RFC 2544 benchmark engine for the
// traffic-generation appliance: the throughput search (Section 25.1), the
// latency test (25.2), the frame-loss-rate test (25.3), and the reset test
// (25.6).
//
// The Manager is the single entry point. It drives the dataplane through the
// Generator/StatsSource/PortSource/StatsSink contracts, enforces the
// one-experiment-at-a-time regime via the abort broadcast channel, and
// publishes results into the Store, where the HTTP layer reads them.
package bench
