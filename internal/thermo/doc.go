// Package thermo implements the thermometer registry core: thermometer
// identity and the one-time registration state machine, the append-only
// temperature reading store, the ownership access policy, and the services
// that orchestrate them.
//
// State machine: Unregistered → Registered (one-way, via Register or
// implicitly at Create), and either state → Deleted (terminal, cascades to
// readings). No other transitions exist.
//
// All atomicity guarantees live at the storage boundary: the repository
// serializes the registration check-then-set and commits reading batches
// and cascade deletes transactionally. The policy is pure and never blocks.
package thermo
