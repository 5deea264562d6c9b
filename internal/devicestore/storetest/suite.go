// Package storetest is a behavioral contract every devicestore backend must
// satisfy. Backends run it from their own tests.
package storetest

import (
	"context"

	"github.com/stretchr/testify/suite"

	"clearcrew/internal/devicestore"
	"clearcrew/pkg/platform/sentinel"
)

// Suite runs the contract against stores built by NewStore, one per test.
type Suite struct {
	suite.Suite
	NewStore func() devicestore.Store

	store devicestore.Store
}

func (s *Suite) SetupTest() {
	s.store = s.NewStore()
}

func (s *Suite) TearDownTest() {
	s.NoError(s.store.Close())
}

func (s *Suite) TestMissingKey() {
	_, err := s.store.Get(context.Background(), "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *Suite) TestSetManyThenGet() {
	ctx := context.Background()
	err := s.store.SetMany(ctx, map[string][]byte{
		devicestore.KeyNullifierSeed: []byte("1a"),
		devicestore.KeySecret:        []byte("2b"),
	})
	s.Require().NoError(err)

	seed, err := s.store.Get(ctx, devicestore.KeyNullifierSeed)
	s.Require().NoError(err)
	s.Equal([]byte("1a"), seed)

	secret, err := s.store.Get(ctx, devicestore.KeySecret)
	s.Require().NoError(err)
	s.Equal([]byte("2b"), secret)
}

func (s *Suite) TestOverwrite() {
	ctx := context.Background()
	s.Require().NoError(s.store.SetMany(ctx, map[string][]byte{devicestore.KeySecret: []byte("old")}))
	s.Require().NoError(s.store.SetMany(ctx, map[string][]byte{devicestore.KeySecret: []byte("new")}))

	v, err := s.store.Get(ctx, devicestore.KeySecret)
	s.Require().NoError(err)
	s.Equal([]byte("new"), v)
}

func (s *Suite) TestDeleteMany() {
	ctx := context.Background()
	s.Require().NoError(s.store.SetMany(ctx, map[string][]byte{
		devicestore.KeyNullifierSeed: []byte("1a"),
		devicestore.KeySecret:        []byte("2b"),
		devicestore.KeySessionToken:  []byte("tok"),
	}))

	s.Require().NoError(s.store.DeleteMany(ctx, devicestore.KeyNullifierSeed, devicestore.KeySecret))

	_, err := s.store.Get(ctx, devicestore.KeyNullifierSeed)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Get(ctx, devicestore.KeySecret)
	s.ErrorIs(err, sentinel.ErrNotFound)

	tok, err := s.store.Get(ctx, devicestore.KeySessionToken)
	s.Require().NoError(err)
	s.Equal([]byte("tok"), tok)
}

func (s *Suite) TestDeleteMissingIsNoop() {
	s.NoError(s.store.DeleteMany(context.Background(), "never-set"))
}

func (s *Suite) TestReturnedValueIsACopy() {
	ctx := context.Background()
	s.Require().NoError(s.store.SetMany(ctx, map[string][]byte{"k": []byte("abc")}))

	v, err := s.store.Get(ctx, "k")
	s.Require().NoError(err)
	v[0] = 'z'

	again, err := s.store.Get(ctx, "k")
	s.Require().NoError(err)
	s.Equal([]byte("abc"), again)
}
