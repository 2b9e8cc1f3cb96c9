package cli

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewInterruptHandler(t *testing.T) {
	tests := []struct {
		writer io.Writer
		name   string
	}{
		{name: "with custom writer", writer: &bytes.Buffer{}},
		{name: "with nil writer", writer: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewInterruptHandler(tt.writer)
			assert.NotNil(t, handler.writer)
			assert.False(t, handler.WasInterrupted())
		})
	}
}

func TestHandleInterrupts_Interrupt(t *testing.T) {
	output := &bytes.Buffer{}
	handler := NewInterruptHandler(output)

	ctx := handler.HandleInterrupts(context.Background(), "Files already written were kept.")

	select {
	case <-ctx.Done():
		t.Fatal("context should not be canceled initially")
	default:
	}

	handler.interrupt()
	handler.interrupt()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context should be canceled after an interrupt")
	}

	assert.True(t, handler.WasInterrupted())
	assert.Contains(t, output.String(), "Derivation interrupted!")
	assert.Contains(t, output.String(), "Files already written were kept.")
	assert.Equal(t, 1, bytes.Count(output.Bytes(), []byte("interrupted")))
}

func TestHandleInterrupts_ParentCancel(t *testing.T) {
	output := &bytes.Buffer{}
	handler := NewInterruptHandler(output)

	parent, cancel := context.WithCancel(context.Background())
	ctx := handler.HandleInterrupts(parent, "")
	cancel()

	<-ctx.Done()
	assert.False(t, handler.WasInterrupted())
	assert.Empty(t, output.String())
}

func TestHandleInterrupts_Stop(t *testing.T) {
	handler := NewInterruptHandler(&bytes.Buffer{})
	ctx := handler.HandleInterrupts(context.Background(), "")
	handler.Stop()

	<-ctx.Done()
	assert.False(t, handler.WasInterrupted())
}
