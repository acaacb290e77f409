// Package config defines the bridge's typed configuration structs and
// their YAML loaders: LoadBridgeConfig reads the top-level process config
// file once, and LoadDestinationTable reads the destination table and
// routing rules. Only the destination table has an fsnotify-backed
// watcher for reload without a restart; the process config is not
// reloaded, and no loader expands environment variables.
package config
