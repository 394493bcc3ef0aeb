// Package simulation runs simulation jobs through their lifecycle.
//
// Service binds the lifecycle hooks to provisioning, result storage,
// notifications and progress broadcasts, persists every job after it fired
// an event, and serializes events per job. The install_instance and
// remove_instance task handlers do the slow provisioning work outside the
// job lock and report back by firing idle or error.
package simulation
