// Package scan detects the shape of an album list file and parses it
// into album entries. Supported shapes are Spotify track exports,
// two-column CSVs with or without a header, "Artist - Album" and
// "Album by Artist" text lists, and tab-separated pairs. A file that
// matches nothing is salvaged line by line.
package scan
