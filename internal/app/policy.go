package app

import (
	"errors"

	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	EvictSink
	DropFrame
)

// Policy decides what happens to a sink whose Send failed with anything
// other than core.ErrSinkClosed. Closed sinks are always evicted.
type Policy interface {
	OnSendError(eventID domain.EventID, sink core.Sink, err error) BackpressureAction
}

// SimplePolicy evicts on every failure.
type SimplePolicy struct{}

func (SimplePolicy) OnSendError(domain.EventID, core.Sink, error) BackpressureAction {
	return EvictSink
}

// DropFramePolicy keeps slow sinks and only drops the frame they could not take.
type DropFramePolicy struct{}

func (DropFramePolicy) OnSendError(_ domain.EventID, _ core.Sink, err error) BackpressureAction {
	if errors.Is(err, core.ErrBackpressure) {
		return DropFrame
	}
	return EvictSink
}
