// Package album defines the core data model shared by the parser
// pipeline and the importer: the AlbumEntry record and the closed
// import status taxonomy that drives resume behavior.
package album
