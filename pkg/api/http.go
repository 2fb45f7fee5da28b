package api

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"parley/pkg/api/router"
	adminRoutes "parley/pkg/api/routes/admin"
	backendRoutes "parley/pkg/api/routes/backend"
	frontendRoutes "parley/pkg/api/routes/frontend"
	"parley/pkg/blob"
	"parley/pkg/chat"
)

var (
	gcPauseTotal = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "parley_runtime_gc_pause_total_ns",
			Help: "Total GC pause time in nanoseconds.",
		},
		func() float64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return float64(stats.PauseTotalNs)
		},
	)

	heapAlloc = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "parley_runtime_heap_alloc_bytes",
			Help: "Current heap allocation in bytes.",
		},
		func() float64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return float64(stats.HeapAlloc)
		},
	)

	heapSys = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "parley_runtime_heap_sys_bytes",
			Help: "Total heap size in bytes.",
		},
		func() float64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return float64(stats.HeapSys)
		},
	)

	numGC = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "parley_runtime_gc_cycles_total",
			Help: "Total number of GC cycles.",
		},
		func() float64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return float64(stats.NumGC)
		},
	)
)

func init() {
	prometheus.MustRegister(gcPauseTotal)
	prometheus.MustRegister(heapAlloc)
	prometheus.MustRegister(heapSys)
	prometheus.MustRegister(numGC)
}

// wrapHTTPHandler wraps an http.Handler to work with fasthttp.
func wrapHTTPHandler(h http.Handler) func(ctx *fasthttp.RequestCtx) {
	return fasthttpadaptor.NewFastHTTPHandler(h)
}

// Deps are the collaborators the routes act on.
type Deps struct {
	Chat        *chat.Service
	Blobs       *blob.Store
	Checkpoints adminRoutes.Checkpointer
	Version     string
}

// RegisterRoutes wires all API routes onto the provided router.
func RegisterRoutes(r *router.Router, d Deps) {
	fe := frontendRoutes.New(d.Chat, d.Blobs)
	be := backendRoutes.New(d.Chat)
	ad := adminRoutes.New(d.Chat, d.Checkpoints, d.Version)

	// backend operations
	r.POST("/v1/sign", be.Sign)
	r.POST("/v1/users/sync", be.SyncUser)

	// profiles
	r.GET("/v1/users", fe.ListUsers)
	r.GET("/v1/users/me", fe.CurrentUser)
	r.POST("/v1/users/me/heartbeat", fe.Heartbeat)

	// conversations
	r.POST("/v1/conversations/direct", fe.CreateOrGetDirect)
	r.POST("/v1/conversations/group", fe.CreateGroup)
	r.GET("/v1/conversations", fe.ListMyConversations)
	r.GET("/v1/conversations/{conversationId}", fe.GetConversation)
	r.GET("/v1/conversations/{conversationId}/members", fe.ListMembers)

	// conversation messages and presence
	r.POST("/v1/conversations/{conversationId}/messages", fe.Send)
	r.GET("/v1/conversations/{conversationId}/messages", fe.List)
	r.POST("/v1/conversations/{conversationId}/files", fe.SendFile)
	r.POST("/v1/conversations/{conversationId}/seen", fe.MarkSeen)
	r.PUT("/v1/conversations/{conversationId}/typing", fe.SetTyping)
	r.GET("/v1/conversations/{conversationId}/typing", fe.ListTyping)
	r.DELETE("/v1/conversations/{conversationId}/unread", fe.ClearUnread)
	r.GET("/v1/unreads", fe.ListUnreads)

	// single messages
	r.DELETE("/v1/messages/{messageId}", fe.Delete)
	r.POST("/v1/messages/{messageId}/reactions", fe.ToggleReaction)

	// files
	r.POST("/v1/files", fe.UploadBlob)
	r.GET("/v1/files/{handle}", fe.DownloadBlob)
	r.GET("/v1/files/{handle}/url", fe.GetBlobURL)

	// admin routes
	r.GET("/admin/health", ad.Health)
	r.GET("/admin/stats", ad.Stats)
	r.GET("/admin/checkpoints", ad.ListCheckpoints)
	r.POST("/admin/jobs/checkpoint", ad.RunCheckpoint)

	// admin debug routes
	r.GET("/admin/debug/prometheus", wrapHTTPHandler(promhttp.Handler()))
	r.GET("/admin/debug/pprof/", wrapHTTPHandler(http.HandlerFunc(pprof.Index)))
	r.GET("/admin/debug/pprof/cmdline", wrapHTTPHandler(http.HandlerFunc(pprof.Cmdline)))
	r.GET("/admin/debug/pprof/profile", wrapHTTPHandler(http.HandlerFunc(pprof.Profile)))
	r.GET("/admin/debug/pprof/symbol", wrapHTTPHandler(http.HandlerFunc(pprof.Symbol)))
	r.GET("/admin/debug/pprof/trace", wrapHTTPHandler(http.HandlerFunc(pprof.Trace)))
}

// Handler returns the fasthttp handler for the API.
func Handler(d Deps) fasthttp.RequestHandler {
	r := router.New()
	RegisterRoutes(r, d)
	return r.Handler
}
