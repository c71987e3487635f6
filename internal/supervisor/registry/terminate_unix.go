//go:build !windows
// +build !windows

/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package registry

import (
	"os"
	"syscall"
)

// terminateTree signals the whole process group of pid: SIGTERM for a
// graceful stop, SIGKILL when force is set. Falls back to signalling the
// single process if the group signal fails.
// terminateTree 向 pid 的整个进程组发送信号：优雅停止用 SIGTERM，
// force 时用 SIGKILL。组信号失败时回退为只通知单个进程。
func terminateTree(pid int, force bool) error {
	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	if err := syscall.Kill(-pid, sig); err != nil {
		return syscall.Kill(pid, sig)
	}
	return nil
}

// IsPidAlive checks whether a process with the given pid exists, using a
// signal-0 probe.
// IsPidAlive 使用信号 0 探测检查给定 pid 的进程是否存在。
func IsPidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds, so send signal 0 to check
	// 在 Unix 上 FindProcess 总是成功，因此发送信号 0 来检查
	return process.Signal(syscall.Signal(0)) == nil
}
