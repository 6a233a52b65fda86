// Package config provides configuration structures and utilities for udpscope.
// It defines socket settings, analysis tunables, report preferences and the
// optional YAML configuration file.
package config
