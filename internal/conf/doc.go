package conf

// Package conf holds the settings of the ddiskit program itself: the log
// level, the spinner, and the command lines of the external tools it drives.
// Module packaging settings are handled by the config package instead.
//
// # Usage
//
// The global Configuration variable is automatically loaded at package initialization:
//
//	import "github.com/redhat/ddiskit/internal/conf"
//
//	func main() {
//	    fmt.Println(conf.Configuration.RPMBuild)
//	}
//
// For custom configuration loading (e.g., testing), use ConfigSource:
//
//	cs := &conf.ConfigSource{
//	    Path:      "/custom/path/tools.toml",
//	    DropInDir: "/custom/path/tools.toml.d",
//	}
//	config, err := cs.Read()
//
// # Load Order
//
//  1. Embedded defaults (tools.toml)
//  2. Main file: /etc/ddiskit/tools.toml
//  3. Drop-in files: /etc/ddiskit/tools.toml.d/*.toml, in lexicographic order
//
// A main or drop-in file that exists but cannot be parsed makes Read fail;
// package initialization then falls back to the embedded defaults.
//
// # Internal Architecture
//
//   - configDTO: TOML shape with pointer fields, so "not set" (nil) differs
//     from "set to zero value".
//
//   - Config: public struct with value fields. Update applies a DTO.
//
//   - ConfigSource: loads and merges the layers.
