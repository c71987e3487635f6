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
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidateHealthPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"valid root", "/", false},
		{"valid simple", "/health", false},
		{"valid nested", "/v1/models/ready", false},
		{"empty", "", true},
		{"no leading slash", "health", true},
		{"relative word", "status", true},
		{"parent traversal", "/../etc/passwd", true},
		{"embedded traversal", "/health/../../admin", true},
		{"backslash", "/health\\..", true},
		{"embedded scheme", "/http://evil.example/", true},
		{"scheme only", "http://evil.example/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHealthPath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsafeHealthPath)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckRejectsPortOutsideRangeWithoutNetwork(t *testing.T) {
	p := NewProber(zap.NewNop())

	// 低于允许范围的端口在任何网络调用之前被拒绝
	err := p.Check(context.Background(), 80, "/health", StandardRetryConfig)
	require.ErrorIs(t, err, ErrPortNotAllowed)

	err = p.Check(context.Background(), 0, "/health", StandardRetryConfig)
	require.ErrorIs(t, err, ErrPortNotAllowed)

	p = NewProber(zap.NewNop(), WithPortRange(5000, 6000))
	err = p.Check(context.Background(), 4999, "/health", StandardRetryConfig)
	require.ErrorIs(t, err, ErrPortNotAllowed)
}

func TestCheckRejectsUnsafePathBeforeProbing(t *testing.T) {
	p := NewProber(zap.NewNop())
	err := p.Check(context.Background(), 8080, "/../secret", StandardRetryConfig)
	require.ErrorIs(t, err, ErrUnsafeHealthPath)
}

// serverPort extracts the listen port of an httptest server.
func serverPort(t *testing.T, ts *httptest.Server) int {
	t.Helper()
	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	_, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return port
}

func TestCheckSucceedsOn200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	p := NewProber(zap.NewNop(), WithPortRange(1, 65535))
	err := p.Check(context.Background(), serverPort(t, ts), "/health", StandardRetryConfig)
	assert.NoError(t, err)
}

func TestCheckRetriesUntilReady(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	fast := RetryConfig{MaxAttempts: 5, InitialDelay: 5 * time.Millisecond, BackoffFactor: 1, MaxDelay: 10 * time.Millisecond}
	p := NewProber(zap.NewNop(), WithPortRange(1, 65535))
	err := p.Check(context.Background(), serverPort(t, ts), "/health", fast)
	assert.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestCheckFailsAfterExhaustingAttempts(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	fast := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 1, MaxDelay: time.Millisecond}
	p := NewProber(zap.NewNop(), WithPortRange(1, 65535))
	err := p.Check(context.Background(), serverPort(t, ts), "/health", fast)
	require.ErrorIs(t, err, ErrProbeFailed)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestCheckRespectsContextCancellation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slow := RetryConfig{MaxAttempts: 5, InitialDelay: time.Minute, BackoffFactor: 2, MaxDelay: time.Minute}
	p := NewProber(zap.NewNop(), WithPortRange(1, 65535))
	err := p.Check(ctx, serverPort(t, ts), "/health", slow)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStandardRetryDelaySequence(t *testing.T) {
	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
		32000 * time.Millisecond,
		64000 * time.Millisecond,
		64000 * time.Millisecond, // capped
	}
	for i, w := range want {
		assert.Equal(t, w, StandardRetryConfig.DelayFor(i), "attempt %d", i)
	}
}

func TestPrepareRetryDelayCapped(t *testing.T) {
	assert.Equal(t, 1000*time.Millisecond, PrepareRetryConfig.DelayFor(0))
	assert.Equal(t, 1500*time.Millisecond, PrepareRetryConfig.DelayFor(1))
	assert.Equal(t, 2250*time.Millisecond, PrepareRetryConfig.DelayFor(2))
	// 之后全部封顶在 MaxDelay
	for i := 3; i < 10; i++ {
		assert.Equal(t, 3000*time.Millisecond, PrepareRetryConfig.DelayFor(i))
	}
}

// **Property: backoff delays are monotonically non-decreasing and never exceed MaxDelay**
func TestRetryDelayProperties(t *testing.T) {
	parameters := gopter.DefaultTestParametersWithSeed(1234)
	properties := gopter.NewProperties(parameters)

	properties.Property("delays are non-decreasing and capped", prop.ForAll(
		func(initialMs int, factor float64, maxMs int, attempt int) bool {
			cfg := RetryConfig{
				MaxAttempts:   10,
				InitialDelay:  time.Duration(initialMs) * time.Millisecond,
				BackoffFactor: factor,
				MaxDelay:      time.Duration(maxMs) * time.Millisecond,
			}
			d1 := cfg.DelayFor(attempt)
			d2 := cfg.DelayFor(attempt + 1)
			return d1 <= d2 && d2 <= cfg.MaxDelay
		},
		gen.IntRange(1, 5000),
		gen.Float64Range(1.0, 3.0),
		gen.IntRange(5000, 120000),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
