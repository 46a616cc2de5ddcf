package engine

import (
	"context"
	"time"

	tomb "gopkg.in/tomb.v2"
)

// runPersistLoop is the periodic (default 5s) snapshot saver. A failed
// save is logged and swallowed per spec.md §7 — the next tick retries;
// persistence failure never propagates to the order path. Mirrors the
// teacher's tomb-supervised loop shape in internal/worker.go.
func (e *Engine) runPersistLoop(t *tomb.Tomb) error {
	if e.persist == nil {
		<-t.Dying()
		return nil
	}

	ticker := time.NewTicker(e.cfg.PersistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.Dying():
			return nil
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), e.cfg.PersistInterval)
			if err := e.persist.Save(ctx, e.Snapshot()); err != nil {
				e.log.Error().Err(err).Msg("engine: periodic snapshot save failed, will retry next tick")
			}
			cancel()
		}
	}
}
