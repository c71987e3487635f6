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

package workload

import "errors"

// Error definitions for workload management operations.
var (
	// ErrWorkloadNotFound indicates the requested workload does not exist.
	ErrWorkloadNotFound = errors.New("workload: workload not found")
	// ErrWorkloadNameEmpty indicates the workload name is empty.
	ErrWorkloadNameEmpty = errors.New("workload: workload name cannot be empty")
	// ErrWorkloadPortDuplicate indicates another workload already uses the port.
	ErrWorkloadPortDuplicate = errors.New("workload: port is already used by another workload")
	// ErrWorkloadInvalidType indicates an unknown workload type was specified.
	ErrWorkloadInvalidType = errors.New("workload: invalid workload type")
	// ErrWorkloadInvalidPort indicates the listening port is outside the allowed range.
	ErrWorkloadInvalidPort = errors.New("workload: invalid listening port")
	// ErrWorkloadInvalidStatus indicates an unknown workload status was specified.
	ErrWorkloadInvalidStatus = errors.New("workload: invalid workload status")
)

// Error codes for workload management operations.
const (
	ErrCodeWorkloadNotFound      = 5001
	ErrCodeWorkloadNameEmpty     = 5002
	ErrCodeWorkloadPortDuplicate = 5003
	ErrCodeWorkloadInvalidType   = 5004
	ErrCodeWorkloadInvalidPort   = 5005
	ErrCodeWorkloadInvalidStatus = 5006
)
