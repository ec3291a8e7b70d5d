// Package membership mutates the backend set: it generates the identity of
// each admitted backend, allocates its port, asks the provisioner to start
// or stop the process behind it and triggers the ring rebuild through the
// pool. Provisioning always happens outside the ring's critical section.
package membership
