// Package config loads and validates promptd's YAML configuration.
//
// Configuration lives in a single config.yaml inside the configuration
// directory (default ~/.config/promptd). Loading starts from defaults and
// unmarshals the file over them, so a missing file is not an error.
//
// The package also provides an fsnotify-based Watcher that reloads the file
// on change and hands the validated result to a callback. Invalid edits are
// rejected and the previous configuration stays active.
package config
