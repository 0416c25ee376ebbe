//go:build !windows && !darwin

package config

func onXDGPlatform() bool { return true }
