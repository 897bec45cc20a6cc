//go:build ichidev

package config

const devOverridesCompiled = true
