// Package ring implements the consistent hashing ring the load balancer
// routes over. Backends are placed onto a fixed circular slot space through
// virtual nodes, collisions and lookup misses are resolved by linear
// probing, and the whole layout is rebuilt under an exclusive lock whenever
// membership changes.
package ring
