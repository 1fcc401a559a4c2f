// Command wantlist turns album lists in assorted formats into enriched
// CSV files and imports them into Lidarr.
package main
