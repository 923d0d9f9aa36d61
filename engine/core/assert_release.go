//go:build !debug

package core

const debugAsserts = false
