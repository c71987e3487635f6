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

// Package router 提供 HTTP 路由配置
// Package router provides HTTP routing configuration
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/edgeai/workstation/internal/apps/workload"
	"github.com/edgeai/workstation/internal/logger"
)

// New builds the gin engine with all routes registered.
// New 构建注册了所有路由的 gin 引擎。
func New(appName string, workloadHandler *workload.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// 补充中间件
	// Add middleware
	r.Use(otelgin.Middleware(appName), loggerMiddleware())

	apiV1 := r.Group("/api/v1")
	{
		// Health
		apiV1.GET("/health", health)

		// Workload
		workloadRouter := apiV1.Group("/workloads")
		{
			workloadRouter.GET("", workloadHandler.ListWorkloads)
			workloadRouter.POST("", workloadHandler.CreateWorkload)
			workloadRouter.GET("/:id", workloadHandler.GetWorkload)
			workloadRouter.PUT("/:id", workloadHandler.UpdateWorkload)
			workloadRouter.DELETE("/:id", workloadHandler.DeleteWorkload)
			workloadRouter.PUT("/:id/status", workloadHandler.UpdateWorkloadStatus)
			workloadRouter.GET("/:id/logs", workloadHandler.TailWorkloadLogs)
		}

		// Supervised processes
		apiV1.GET("/processes", workloadHandler.ListProcesses)
	}

	return r
}

// health 服务存活探针
// health is the service liveness probe
func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// loggerMiddleware 记录每个请求的访问日志
// loggerMiddleware logs each request
func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.InfoF(c.Request.Context(), "[API] %s %s %d %s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
