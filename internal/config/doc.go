// Package config defines the configuration model of simrun.
//
// The [Config] struct is read from a YAML file (simrun.yaml by default) and
// then overlaid with secrets from the environment. Provider credentials are
// not validated here: a missing credential surfaces as an initialization
// error on first use of the provider concern that needs it.
//
// [Timeouts] are loaded separately from SIMRUN_TIMEOUT_* variables and bound
// every blocking wait on the cloud provider.
package config
