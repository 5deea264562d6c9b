package pebble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"clearcrew/internal/devicestore"
	"clearcrew/internal/devicestore/storetest"
)

func TestPebbleStoreContract(t *testing.T) {
	suite.Run(t, &storetest.Suite{NewStore: func() devicestore.Store {
		s, err := Open("device", WithInMemoryFS())
		require.NoError(t, err)
		return s
	}})
}

func TestPebbleStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.SetMany(ctx, map[string][]byte{devicestore.KeySecret: []byte("2b")}))
	require.NoError(t, s.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get(ctx, devicestore.KeySecret)
	require.NoError(t, err)
	require.Equal(t, []byte("2b"), v)
}
