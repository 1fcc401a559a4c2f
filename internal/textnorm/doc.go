// Package textnorm cleans artist names and album titles drawn from
// heterogeneous list exports so that the same release spelled three
// different ways collapses to one spelling. It also derives the
// aggressive comparison keys and search variations used by the
// deduplicator and the MusicBrainz client.
package textnorm
