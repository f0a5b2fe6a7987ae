// Package builder compiles an autotools source tree out of tree and installs it into a staging root.
package builder
