package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopHandler(context.Context, *Invocation) error { return nil }

func TestRegistryRegisterDuplicateName(t *testing.T) {
	reg := NewRegistry()

	first := &Command{Name: "ping", Handler: nopHandler}
	require.True(t, reg.Register(first))
	assert.False(t, reg.Register(&Command{Name: "ping", Handler: nopHandler}))
	assert.False(t, reg.Register(&Command{Name: "PING", Handler: nopHandler}), "names compare case-insensitively")

	got, ok := reg.Lookup("ping")
	require.True(t, ok)
	assert.Same(t, first, got, "original registration survives the conflict")
}

func TestRegistryAliasConflictPartialSuccess(t *testing.T) {
	reg := NewRegistry()

	first := &Command{Name: "ping", Handler: nopHandler, Aliases: []string{"p"}}
	require.True(t, reg.Register(first))

	// The conflicting alias is skipped, the command and its other alias
	// still register.
	second := &Command{Name: "pong", Handler: nopHandler, Aliases: []string{"p", "pg"}}
	require.True(t, reg.Register(second))

	got, ok := reg.Lookup("p")
	require.True(t, ok)
	assert.Same(t, first, got)

	got, ok = reg.Lookup("pg")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistryAliasCannotShadowCommandName(t *testing.T) {
	reg := NewRegistry()

	require.True(t, reg.Register(&Command{Name: "ping", Handler: nopHandler}))
	require.True(t, reg.Register(&Command{Name: "pong", Handler: nopHandler, Aliases: []string{"ping"}}))

	got, ok := reg.Lookup("ping")
	require.True(t, ok)
	assert.Equal(t, "ping", got.Name)
}

func TestRegistryRejectsNameClaimedAsAlias(t *testing.T) {
	reg := NewRegistry()

	require.True(t, reg.Register(&Command{Name: "ping", Handler: nopHandler, Aliases: []string{"pong"}}))
	assert.False(t, reg.Register(&Command{Name: "pong", Handler: nopHandler}))
}

func TestRegistryUnregisterOwner(t *testing.T) {
	reg := NewRegistry()

	type plugin struct{ name string }
	mine := &plugin{name: "mine"}
	other := &plugin{name: "other"}

	require.True(t, reg.Register(&Command{Name: "one", Owner: mine, Handler: nopHandler, Aliases: []string{"o1"}}))
	require.True(t, reg.Register(&Command{Name: "two", Owner: mine, Handler: nopHandler}))
	require.True(t, reg.Register(&Command{Name: "keep", Owner: other, Handler: nopHandler, Aliases: []string{"k"}}))

	reg.UnregisterOwner(mine)

	_, ok := reg.Lookup("one")
	assert.False(t, ok)
	_, ok = reg.Lookup("o1")
	assert.False(t, ok, "aliases of removed commands are removed too")
	_, ok = reg.Lookup("two")
	assert.False(t, ok)

	_, ok = reg.Lookup("keep")
	assert.True(t, ok)
	_, ok = reg.Lookup("k")
	assert.True(t, ok)

	// Owner with nothing registered is a no-op.
	reg.UnregisterOwner(&plugin{name: "nobody"})
	_, ok = reg.Lookup("keep")
	assert.True(t, ok)
}

func TestRegistryCommandsSorted(t *testing.T) {
	reg := NewRegistry()
	require.True(t, reg.Register(&Command{Name: "zeta", Handler: nopHandler}))
	require.True(t, reg.Register(&Command{Name: "alpha", Handler: nopHandler}))

	list := reg.Commands()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zeta", list[1].Name)
}

func TestRegistryRejectsIncomplete(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.Register(nil))
	assert.False(t, reg.Register(&Command{Name: "", Handler: nopHandler}))
	assert.False(t, reg.Register(&Command{Name: "x", Handler: nil}))
}
