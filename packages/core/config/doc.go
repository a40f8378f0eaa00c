// Package config loads the optional rede configuration file.
//
// The file is YAML and is looked up as .rede.yaml, .rede.yml or rede.yaml in
// the working directory unless --config names one explicitly. It carries
// defaults for the runtime options; command line flags and request file
// annotations take precedence over it.
package config
