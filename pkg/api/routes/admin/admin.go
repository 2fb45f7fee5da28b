// Package admin serves operator endpoints behind admin keys.
package admin

import (
	"context"
	"errors"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/valyala/fasthttp"

	"parley/internal/checkpoint"
	"parley/pkg/api/router"
	"parley/pkg/chat"
	"parley/pkg/state/logger"
	"parley/pkg/timeutil"
)

// Checkpointer runs a database checkpoint on demand.
type Checkpointer interface {
	RunNow(ctx context.Context) (checkpoint.Result, error)
	List() ([]string, error)
}

type Handlers struct {
	chat      *chat.Service
	cp        Checkpointer
	version   string
	startedAt time.Time
}

func New(svc *chat.Service, cp Checkpointer, version string) *Handlers {
	return &Handlers{chat: svc, cp: cp, version: version, startedAt: timeutil.Now()}
}

func (h *Handlers) Health(ctx *fasthttp.RequestCtx) {
	_ = router.WriteJSON(ctx, map[string]interface{}{
		"status":  "ok",
		"service": "parley",
		"version": h.version,
		"started": humanize.Time(h.startedAt),
	})
}

func (h *Handlers) Stats(ctx *fasthttp.RequestCtx) {
	st, err := h.chat.Stats()
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, st)
}

func (h *Handlers) RunCheckpoint(ctx *fasthttp.RequestCtx) {
	if h.cp == nil {
		router.WriteJSONError(ctx, fasthttp.StatusServiceUnavailable, "checkpoints not configured")
		return
	}
	runCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	res, err := h.cp.RunNow(runCtx)
	if err != nil {
		if errors.Is(err, checkpoint.ErrBusy) {
			router.WriteJSONError(ctx, fasthttp.StatusConflict, err.Error())
			return
		}
		logger.Error("admin_checkpoint_failed", "error", err)
		router.WriteJSONError(ctx, fasthttp.StatusInternalServerError, "checkpoint failed")
		return
	}
	_ = router.WriteJSON(ctx, res)
}

func (h *Handlers) ListCheckpoints(ctx *fasthttp.RequestCtx) {
	if h.cp == nil {
		_ = router.WriteJSON(ctx, map[string]interface{}{"checkpoints": []string{}})
		return
	}
	names, err := h.cp.List()
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	_ = router.WriteJSON(ctx, map[string]interface{}{"checkpoints": names})
}
