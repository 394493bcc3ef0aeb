// Package deploy turns a machine definition into a running instance and
// back.
//
// A Deployer builds the provisioning request (image, disk, zone, network,
// type, labels and a startup script carrying the job metadata), hands it to
// provider.Provider and tracks whether the machine is running. Rollback of
// partially created resources happens inside the provider.
package deploy
