// Package config handles loading and validating the controller configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (OBSCONTROL_*)
//   - Validating the court list and global tunables before startup
//
// Validation failures are fatal: the supervisor never starts with an
// invalid court list.
package config
