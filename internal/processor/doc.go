// Package processor contains the core logic of ynlb. It runs single
// translations on one worker handle, bulk translations through the
// dispatcher, writes bulk reports and serves the history commands. This
// package is the coordinator between all other components.
package processor
