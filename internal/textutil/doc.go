// Package textutil provides string similarity scoring on a 0-100 scale
// used to decide whether two album titles or artist names refer to the
// same thing.
package textutil
