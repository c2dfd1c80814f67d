// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

//go:build linux

package failures

import "golang.org/x/sys/unix"

// SystemRebooter restarts the machine. The process needs CAP_SYS_BOOT.
type SystemRebooter struct{}

func (SystemRebooter) Reboot() error {
	unix.Sync()
	return unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
}
