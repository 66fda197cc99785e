package event

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeString(t *testing.T) {
	tests := []struct {
		want string
		typ  Type
	}{
		{want: "ScanStarted", typ: ScanStarted},
		{want: "ScanComplete", typ: ScanComplete},
		{want: "FileCopied", typ: FileCopied},
		{want: "FileFailed", typ: FileFailed},
		{want: "FileSkipped", typ: FileSkipped},
		{want: "FilePlanned", typ: FilePlanned},
		{want: "DirCreated", typ: DirCreated},
		{want: "VerifyStarted", typ: VerifyStarted},
		{want: "VerifyOK", typ: VerifyOK},
		{want: "VerifyFailed", typ: VerifyFailed},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestTypeStringUnknown(t *testing.T) {
	assert.Equal(t, "Unknown", Type(999).String())
	assert.Equal(t, "Unknown", Type(0).String())
	assert.Equal(t, "Unknown", Type(-1).String())
}

func TestEventZeroValue(t *testing.T) {
	var e Event
	assert.Equal(t, Type(0), e.Type)
	assert.True(t, e.Timestamp.IsZero())
	assert.Empty(t, e.Path)
	assert.Empty(t, e.Target)
	assert.Zero(t, e.Size)
	require.NoError(t, e.Error)
}

func TestEmit_StampsTimestamp(t *testing.T) {
	ch := make(chan Event, 1)
	Emit(ch, Event{Type: FileCopied, Path: "a.txt"})

	got := <-ch
	assert.Equal(t, FileCopied, got.Type)
	assert.False(t, got.Timestamp.IsZero())
}

func TestEmit_KeepsTimestamp(t *testing.T) {
	ch := make(chan Event, 1)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	Emit(ch, Event{Type: FileFailed, Timestamp: ts, Error: errors.New("boom")})

	got := <-ch
	assert.Equal(t, ts, got.Timestamp)
	require.EqualError(t, got.Error, "boom")
}

func TestEmit_NilAndFullChannel(t *testing.T) {
	assert.NotPanics(t, func() { Emit(nil, Event{Type: FileCopied}) })

	ch := make(chan Event, 1)
	Emit(ch, Event{Type: FileCopied, Path: "first"})
	Emit(ch, Event{Type: FileCopied, Path: "second"}) // dropped, must not block

	got := <-ch
	assert.Equal(t, "first", got.Path)
	assert.Empty(t, ch)
}
