package repositories

import (
	"context"
	"fmt"
	"time"

	"go-logstore/internal/database"
)

const probeTable = "logstore_probe"

// ProbeResult reports whether a gateway completed the startup round trip.
type ProbeResult struct {
	Success  bool
	Driver   string
	Platform string
	Err      error
	Duration time.Duration
}

// Probe opens name through gw and runs CREATE TABLE / INSERT / SELECT
// against a scratch table. It never returns an error or panics; failures are
// reported in ProbeResult.Err.
func Probe(ctx context.Context, gw database.Gateway, name string) (res ProbeResult) {
	start := time.Now()
	res = ProbeResult{Driver: gw.Driver(), Platform: gw.Platform()}
	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Err = fmt.Errorf("probe panicked: %v", r)
		}
		res.Duration = time.Since(start)
	}()

	h, err := gw.Open(ctx, name)
	if err != nil {
		res.Err = fmt.Errorf("open: %w", err)
		return res
	}
	defer func() { _ = h.Close() }()

	steps := []struct {
		what string
		run  func() error
	}{
		{"create", func() error {
			return h.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+probeTable+` (name TEXT, checked_at BIGINT)`)
		}},
		{"insert", func() error {
			return h.Exec(ctx, `INSERT INTO `+probeTable+` (name, checked_at) VALUES (?, ?)`, "probe", start.UnixMilli())
		}},
		{"select", func() error {
			rows, err := h.Query(ctx, `SELECT name FROM `+probeTable+` WHERE checked_at = ?`, start.UnixMilli())
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("inserted probe row not found")
			}
			return nil
		}},
		{"cleanup", func() error {
			return h.Exec(ctx, `DELETE FROM `+probeTable)
		}},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			res.Err = fmt.Errorf("%s: %w", s.what, err)
			return res
		}
	}

	res.Success = true
	return res
}
