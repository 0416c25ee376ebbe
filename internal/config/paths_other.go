//go:build windows || darwin

package config

func onXDGPlatform() bool { return false }
