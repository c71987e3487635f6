//go:build windows
// +build windows

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
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// terminateTree kills the process tree rooted at pid using taskkill.
// terminateTree 使用 taskkill 杀死以 pid 为根的进程树。
func terminateTree(pid int, force bool) error {
	args := []string{"/T", "/PID", strconv.Itoa(pid)}
	if force {
		args = append(args, "/F")
	}
	return exec.Command("taskkill", args...).Run()
}

// IsPidAlive checks whether a process with the given pid exists using
// tasklist, since signal-0 probing is not available on Windows.
// IsPidAlive 使用 tasklist 检查给定 pid 的进程是否存在。
func IsPidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if _, err := os.FindProcess(pid); err != nil {
		return false
	}
	cmd := exec.Command("tasklist", "/FI", fmt.Sprintf("PID eq %d", pid), "/NH")
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return strings.Contains(string(output), strconv.Itoa(pid))
}
