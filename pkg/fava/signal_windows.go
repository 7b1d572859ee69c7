//go:build windows

package fava

import "os"

var terminateSignal = os.Kill
