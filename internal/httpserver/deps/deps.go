package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/index"
	"github.com/MrSnakeDoc/marks/internal/linkhealth"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/metrics"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed on write endpoints
	AllowedCIDRS []string         // IPs allowed on ops and write endpoints
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)

	RedisClient *redis.Client     // nil when running memory-only
	Store       *redisstore.Store // nil when running memory-only
	MemoryIndex *index.MemoryIndex

	Prober          *linkhealth.Prober
	Metrics         *metrics.Collector
	ProbeRateBurst  int // token bucket size per client IP on /api/link-health
	ProbeRatePerMin int // refill rate per client IP

	ReloadTrigger chan struct{} // manual bookmark reload
}

// Now returns TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
