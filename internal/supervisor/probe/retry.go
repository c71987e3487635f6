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

package probe

import (
	"math"
	"time"
)

// RetryConfig is an immutable retry/backoff policy.
// RetryConfig 是不可变的重试/退避策略。
type RetryConfig struct {
	// MaxAttempts is the total number of probe attempts.
	MaxAttempts int
	// InitialDelay is the delay after the first failed attempt.
	InitialDelay time.Duration
	// BackoffFactor multiplies the delay after each failed attempt.
	BackoffFactor float64
	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration
}

// StandardRetryConfig is the health-check policy used for workloads that are
// already active: fewer, longer-spaced retries.
// StandardRetryConfig 是用于已激活工作负载的健康检查策略：次数少、间隔长。
var StandardRetryConfig = RetryConfig{
	MaxAttempts:   6,
	InitialDelay:  1000 * time.Millisecond,
	BackoffFactor: 2,
	MaxDelay:      64000 * time.Millisecond,
}

// PrepareRetryConfig is the aggressive policy used while a workload is
// starting up: more numerous, faster retries.
// PrepareRetryConfig 是工作负载启动期间使用的激进策略：次数多、间隔短。
var PrepareRetryConfig = RetryConfig{
	MaxAttempts:   10,
	InitialDelay:  1000 * time.Millisecond,
	BackoffFactor: 1.5,
	MaxDelay:      3000 * time.Millisecond,
}

// DelayFor returns the backoff delay after the given zero-based failed
// attempt: InitialDelay * BackoffFactor^attempt, capped at MaxDelay.
func (c RetryConfig) DelayFor(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(c.InitialDelay) * math.Pow(c.BackoffFactor, float64(attempt))
	if max := float64(c.MaxDelay); c.MaxDelay > 0 && delay > max {
		delay = max
	}
	return time.Duration(delay)
}
