// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

//go:build !linux

package failures

import (
	"errors"
	"runtime"
)

// SystemRebooter restarts the machine. Only Linux is supported.
type SystemRebooter struct{}

func (SystemRebooter) Reboot() error {
	return errors.New("reboot not supported on " + runtime.GOOS)
}
