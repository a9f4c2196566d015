// Package ballot wires the ballot program to a local host: a four option
// tally kept in a single account, updated by signed vote transactions.
package ballot
