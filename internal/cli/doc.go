// Package cli implements the device-checker command-line interface.
//
// The root command performs a single check run; the watch subcommand keeps
// the process alive and runs checks on the configured cron schedule.
package cli
