//go:build !unix

package worker

func selfUsage() Usage { return Usage{} }
