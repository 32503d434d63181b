// Package config provides configuration structures and utilities for
// scrapeflow. It defines the options of a workflow run, the per-host
// settings read from the .scrapeflow file, and the lookup of the language
// model API key.
package config
