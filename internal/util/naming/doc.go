// Package naming provides consistent names for simrun resources: machine
// instance names, result storage paths and broadcast channels.
//
// Instance names follow {prefix}-{machine}-{8char}, where the suffix comes
// from the machine ID so two machines never collide at the provider.
package naming
