// Package objectstore defines the content-addressed payload store the
// allocator core treats as an external collaborator: task arguments,
// function closures and results all live there, addressed by
// ids.ObjectID. This package only carries the Connector contract and an
// in-memory reference implementation for tests; the real store and its
// wire protocol are out of scope here.
package objectstore
