// Package config implements the layered, self-referential configuration of
// ddiskit.
//
// # Store
//
// A Store maps section -> key -> value. Names are case-insensitive and a key
// of the form "section.key" addresses another section:
//
//	s := config.New()
//	s.Set("spec_file.module_name", "e1000e")
//	s.Get("module_name", config.Section("spec_file")) // "e1000e"
//
// # Substitution
//
// Values may reference other values as {key} (same section) or
// {section.key}. References are expanded on read, pass by pass, until
// nothing changes or the depth budget (8 by default) is spent. Unknown
// references are left as they are. Depth(0) returns the raw value, which is
// how "unset" is told apart from "set to something containing braces".
//
// # Load Order
//
// Source.Read merges, from lowest to highest precedence:
//
//  1. Built-in defaults (embedded defaults.config)
//  2. <res_dir>/ddiskit.config
//  3. /etc/ddiskit.config
//  4. ~/.ddiskitrc
//  5. <profile_dir>/<profile>
//  6. Module config (module.config by default)
//  7. Command line arguments
//
// Merging is first-writer-wins: layers are folded from the highest down and a
// lower layer only fills keys that are still unset.
package config
