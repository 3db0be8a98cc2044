// Package dedupe provides a time-bounded set of seen keys used to drop
// repeated deliveries of the same message within a configurable window.
package dedupe
