// Package scorebot defines the contracts shared by the kernel, platform drivers,
// and command modules: inbound messages, outbound operations, commands, modules,
// and the service registry.
package scorebot
