package ui

import "github.com/bamsammich/copycat/internal/event"

// quietPresenter consumes events but produces no output.
type quietPresenter struct{}

func (quietPresenter) Run(events <-chan event.Event) error {
	//nolint:revive // empty-block: intentionally draining event channel
	for range events {
	}
	return nil
}
