package server

import (
	"context"
	"sync"
	"time"

	"github.com/woozymasta/xsstat/internal/config"
	"github.com/woozymasta/xsstat/internal/geoip"
	"github.com/woozymasta/xsstat/internal/models"
	"github.com/woozymasta/xsstat/internal/storage"
)

// Server holds the dependencies, configuration, and runtime state required
// to answer HTTP requests with live status listings of one game server.
type Server struct {
	// storage records snapshots of successful queries. It can be nil when history is disabled.
	storage *storage.Repository

	// geoip resolves the country of the queried server. It can be nil.
	geoip *geoip.Provider

	// fetch performs one getstatus exchange with the target and returns the payload.
	fetch func(ctx context.Context) ([]byte, error)

	// country returns the cached country code of the target.
	country func() string

	// queue passes snapshots from HTTP handlers to background recording workers.
	queue chan models.Snapshot

	// queueMu guards sends on queue against StopWorkers closing it.
	queueMu sync.RWMutex

	// stopped is set under queueMu once queue is closed.
	stopped bool

	// shutdown is closed to stop background goroutines.
	shutdown chan struct{}

	// seenCache maps snapshot fingerprints to the time they were last queued.
	// It backs the soft limit that skips recording unchanged responses.
	seenCache sync.Map

	// authToken guards /api/history. Empty disables the endpoint.
	authToken string

	target config.Target

	wg sync.WaitGroup

	workers int

	// hardLimitCount is the maximum number of requests allowed per IP address
	// within the hardLimitWin duration.
	hardLimitCount int

	hardLimitWin time.Duration

	softLimitDur time.Duration

	// trustProxy indicates whether X-Forwarded-For or CF-Connecting-IP
	// headers name the client address.
	trustProxy bool
}
