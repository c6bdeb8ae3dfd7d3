// Package config loads runtime configuration for the passvault client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string     address:port of the passvault server
//	-t duration   dial timeout
//	-r duration   how long to wait for a reply
//
// # JSON schema
//
//	{
//	  "server_addr": "127.0.0.1:7070",
//	  "dial_timeout": "5s",
//	  "read_timeout": "30s"
//	}
package config
