//go:build debugassert

package world

const debugAssertions = true
