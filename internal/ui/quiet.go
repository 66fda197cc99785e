package ui

import "github.com/bamsammich/extsort/internal/event"

// quietPresenter drains events and produces no output.
type quietPresenter struct{}

func (quietPresenter) Run(events <-chan event.Event) error {
	for range events {
	}
	return nil
}
