package ui

import (
	"io"

	"github.com/bamsammich/copycat/internal/event"
)

// Presenter consumes run events and displays them.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan event.Event) error
}

// Config configures a Presenter.
type Config struct {
	Writer  io.Writer
	SrcRoot string
	// Width bounds the path column; zero disables truncation.
	Width int
	Feed  bool
	Color bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	if !cfg.Feed {
		return quietPresenter{}
	}
	return &feedPresenter{
		w:       cfg.Writer,
		srcRoot: cfg.SrcRoot,
		width:   cfg.Width,
		color:   cfg.Color,
	}
}
