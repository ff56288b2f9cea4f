//go:build !debugassert

package world

const debugAssertions = false
