package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mira/version"
)

// BuildInfo serves the build of the running binary.
type BuildInfo struct {
	service string
	started time.Time
	build   version.Info
}

// NewBuildInfo captures the build information and the process start time.
func NewBuildInfo(service string) *BuildInfo {
	return &BuildInfo{service: service, started: time.Now(), build: version.Get()}
}

// Info reports the service name, build and uptime.
func (b *BuildInfo) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": b.service,
		"version": b.build.Short(),
		"build":   b.build,
		"uptime":  time.Since(b.started).Round(time.Second).String(),
	})
}

// Version reports the build alone.
func (b *BuildInfo) Version(c *gin.Context) {
	c.JSON(http.StatusOK, b.build)
}
