// Package importer drives enriched album lists into Lidarr. It reads a
// tracked CSV, filters rows by status and name, walks each row through
// the add-or-monitor decision tree, and writes the resulting status back
// to the CSV immediately so an interrupted run can resume.
package importer
