package toolregistry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoArgs struct {
	Text string `json:"text"`
}

func echoHandler(_ context.Context, _ ToolContext, args echoArgs) (any, error) {
	return args.Text, nil
}

func TestRegisterAndExecute(t *testing.T) {
	r := New()
	require.NoError(t, Register(r, "echo", "echoes its input", "test", "", Annotation{Title: "Echo"}, echoHandler))

	result, denied, err := r.Execute(context.Background(), ToolContext{UserID: "u1"}, "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.False(t, denied)
	assert.Equal(t, "hi", result)
}

func TestRegisterDuplicateNameFails(t *testing.T) {
	r := New()
	require.NoError(t, Register(r, "echo", "d", "m", "", Annotation{}, echoHandler))
	err := Register(r, "echo", "d", "m", "", Annotation{}, echoHandler)
	assert.Error(t, err)
}

func TestExecuteUnknownTool(t *testing.T) {
	r := New()
	_, _, err := r.Execute(context.Background(), ToolContext{}, "nope", nil)
	assert.Error(t, err)
}

type denyingRBAC struct{}

func (denyingRBAC) Allowed(ToolContext, string) bool { return false }

func TestExecutePermissionDenied(t *testing.T) {
	r := New()
	r.SetRBAC(denyingRBAC{})
	require.NoError(t, Register(r, "echo", "d", "m", "admin", Annotation{}, echoHandler))

	result, denied, err := r.Execute(context.Background(), ToolContext{UserID: "u1"}, "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.True(t, denied)
	assert.Contains(t, result, "permission denied")
}

func TestAvailableFiltersByPermission(t *testing.T) {
	r := New()
	r.SetRBAC(denyingRBAC{})
	require.NoError(t, Register(r, "open", "d", "m", "", Annotation{}, echoHandler))
	require.NoError(t, Register(r, "gated", "d", "m", "admin", Annotation{}, echoHandler))

	avail := r.Available(ToolContext{UserID: "u1"})
	require.Len(t, avail, 1)
	assert.Equal(t, "open", avail[0].Name)
}

func erroringHandler(_ context.Context, _ ToolContext, _ echoArgs) (any, error) {
	return nil, errors.New("downstream failure")
}

func TestExecuteHandlerErrorBecomesResultString(t *testing.T) {
	r := New()
	require.NoError(t, Register(r, "broken", "d", "m", "", Annotation{}, erroringHandler))

	result, denied, err := r.Execute(context.Background(), ToolContext{}, "broken", map[string]any{})
	require.NoError(t, err)
	assert.False(t, denied)
	assert.Contains(t, result, "downstream failure")
}

func panickingHandler(_ context.Context, _ ToolContext, _ echoArgs) (any, error) {
	panic("boom")
}

func TestExecuteHandlerPanicIsRecovered(t *testing.T) {
	r := New()
	require.NoError(t, Register(r, "panics", "d", "m", "", Annotation{}, panickingHandler))

	result, denied, err := r.Execute(context.Background(), ToolContext{}, "panics", map[string]any{})
	require.NoError(t, err)
	assert.False(t, denied)
	assert.Contains(t, result, "boom")
}
