//go:build !ichidev

package config

const devOverridesCompiled = false
