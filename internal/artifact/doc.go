// Package artifact owns local binary handles: in-memory copies of downloaded
// audio that can be played back or saved, and that must be released
// explicitly when superseded or when their owner is torn down.
//
// Every Handle is created through a Registry, which counts creations and
// releases so leaks and double releases are observable.
package artifact
