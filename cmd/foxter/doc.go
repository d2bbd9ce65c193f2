// Package foxter provides the command-line interface for foxter, a small
// antivirus toolkit. It wires the scan engine, remediation and host checks
// (firewall, ports, processes, users) into cobra subcommands.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/foxter/foxter/cmd/foxter"
//	func main() { foxter.Execute() }
package foxter
