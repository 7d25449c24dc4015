// Package device provides the tracked-device data model and snapshot diffing.
//
// Each device is assigned a deterministic SHA1-based key generated from its
// source name and identifying fields, enabling reliable tracking across runs.
// Diffing compares a previous snapshot against current observations and yields
// an ordered change sequence (new devices, status transitions, removals).
package device
