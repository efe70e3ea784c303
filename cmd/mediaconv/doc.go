// Package main hosts the mediaconv CLI entrypoint and command graph.
//
// The Cobra command tree exposes the two conversion surfaces (convert text,
// convert video), the My Files catalog (files list, download, browse), token
// management and configuration scaffolding. Configuration, the bearer token
// provider and the API client are resolved once per invocation in
// commandContext so subcommands only deal with presentation.
package main
