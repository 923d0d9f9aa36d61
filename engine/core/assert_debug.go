//go:build debug

package core

const debugAsserts = true
