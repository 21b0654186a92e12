// Package utils provides common utility functions for inventory-sync.
// It includes helpers for loose type conversion of decoded API payloads and
// normalisation of hardware addresses, logic that doesn't fit into
// domain-specific packages.
package utils
