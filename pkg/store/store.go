// Package store keeps a bounded history of plot requests.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/lemonberrylabs/fnplot/pkg/plot"
	"github.com/lemonberrylabs/fnplot/pkg/types"
)

// DefaultLimit is the history size used when none is configured.
const DefaultLimit = 50

// Entry is one recorded plot attempt. Failed attempts carry Error and
// ErrorKind and have a zero ValidCount.
type Entry struct {
	ID         string    `json:"id" yaml:"id"`
	Expression string    `json:"expression" yaml:"expression"`
	XMin       float64   `json:"x_min" yaml:"x_min"`
	XMax       float64   `json:"x_max" yaml:"x_max"`
	Title      string    `json:"title,omitempty" yaml:"title,omitempty"`
	Points     int       `json:"points" yaml:"points"`
	ValidCount int       `json:"valid_count" yaml:"valid_count"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	CreateTime time.Time `json:"create_time" yaml:"create_time"`
}

// Failed reports whether the attempt ended in an error.
func (e *Entry) Failed() bool {
	return e.Error != ""
}

// Store records plot attempts. Implementations are safe for concurrent use.
type Store interface {
	// Record assigns e an ID (and a CreateTime if unset) and stores it,
	// evicting the oldest entry once the store is full.
	Record(ctx context.Context, e *Entry) error

	// Recent returns up to limit entries, newest first. limit <= 0 returns
	// everything retained.
	Recent(ctx context.Context, limit int) ([]*Entry, error)

	Close() error
}

// Open returns the store for kind: "memory" or "sqlite". path is only used
// by the SQLite store.
func Open(kind, path string, limit int) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemory(limit), nil
	case "sqlite":
		return NewSQLite(path, limit)
	default:
		return nil, fmt.Errorf("unknown history store %q (want memory or sqlite)", kind)
	}
}

func formatID(n int64) string {
	return fmt.Sprintf("plot-%d", n)
}

// EntryFor builds the history entry for a finished plot attempt. points is
// the grid size the attempt used.
func EntryFor(req plot.Request, points int, data *plot.Data, err error) *Entry {
	e := &Entry{
		Expression: req.FunctionString,
		XMin:       req.XMin,
		XMax:       req.XMax,
		Title:      req.Title,
		Points:     points,
	}
	if err != nil {
		e.Error = err.Error()
		if pe, ok := types.AsPlotError(err); ok {
			e.Error = pe.Message
			e.ErrorKind = string(pe.Kind)
		}
		return e
	}
	e.ValidCount = data.ValidCount
	return e
}
