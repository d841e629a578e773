package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmesh/taskmesh/pkg/ids"
)

func TestMemoryConnector_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	conn := NewMemoryConnector()

	id, err := conn.Set(ctx, []byte("payload"))
	require.NoError(t, err)

	got, err := conn.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, conn.Delete(ctx, id))

	_, err = conn.Get(ctx, id)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestMemoryConnector_DeleteUnknownIsNoop(t *testing.T) {
	conn := NewMemoryConnector()
	assert.NoError(t, conn.Delete(context.Background(), ids.NewObjectID()))
}

func TestMemoryConnector_GetUnknownIsNotFound(t *testing.T) {
	conn := NewMemoryConnector()
	_, err := conn.Get(context.Background(), ids.NewObjectID())
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
