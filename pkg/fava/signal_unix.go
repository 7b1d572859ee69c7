//go:build !windows

package fava

import (
	"os"
	"syscall"
)

var terminateSignal os.Signal = syscall.SIGTERM
