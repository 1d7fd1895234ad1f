// Package storagetest is a conformance suite for stablefs.StorageBlock
// implementations. Backends call Run from their own tests, and
// RunPersistent when their contents survive a reopen.
package storagetest

import (
	"bytes"
	"testing"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/require"

	"github.com/rstms/stablefs"
	"github.com/rstms/stablefs/storage"
)

// Opener returns a fresh, empty StorageBlock limited to maxPages.
type Opener func(t *testing.T, maxPages uint64) stablefs.StorageBlock

// Reopener opens the same backing store again each time it is called.
type Reopener func(t *testing.T) stablefs.StorageBlock

// Run exercises the StorageBlock contract.
func Run(t *testing.T, open Opener) {
	t.Run("StartsEmpty", func(t *testing.T) {
		s := open(t, 4)
		defer s.Close()
		require.Equal(t, uint64(0), s.Size())
		_, err := s.Read(0, 1)
		require.True(t, errors.Is(err, storage.ErrOutOfBounds))
	})

	t.Run("GrowZeroFills", func(t *testing.T) {
		s := open(t, 4)
		defer s.Close()
		prev, err := s.Grow(2)
		require.NoError(t, err)
		require.Equal(t, uint64(0), prev)
		require.Equal(t, uint64(2), s.Size())

		data, err := s.Read(0, 2*stablefs.PageSize)
		require.NoError(t, err)
		require.Equal(t, make([]byte, 2*stablefs.PageSize), data)

		prev, err = s.Grow(1)
		require.NoError(t, err)
		require.Equal(t, uint64(2), prev)
		require.Equal(t, uint64(3), s.Size())
	})

	t.Run("GrowPastLimit", func(t *testing.T) {
		s := open(t, 4)
		defer s.Close()
		_, err := s.Grow(3)
		require.NoError(t, err)
		prev, err := s.Grow(2)
		require.True(t, errors.Is(err, stablefs.ErrStorageExhausted))
		require.Equal(t, uint64(3), prev)
		require.Equal(t, uint64(3), s.Size())
	})

	t.Run("WriteThenRead", func(t *testing.T) {
		s := open(t, 4)
		defer s.Close()
		_, err := s.Grow(1)
		require.NoError(t, err)
		require.NoError(t, s.Write(21, []byte{2, 2, 3}))
		data, err := s.Read(20, 5)
		require.NoError(t, err)
		require.Equal(t, []byte{0, 2, 2, 3, 0}, data)
	})

	t.Run("WriteAcrossPages", func(t *testing.T) {
		s := open(t, 4)
		defer s.Close()
		_, err := s.Grow(3)
		require.NoError(t, err)
		payload := bytes.Repeat([]byte("stablefs"), stablefs.PageSize/4)
		offset := uint64(stablefs.PageSize - 5)
		require.NoError(t, s.Write(offset, payload))
		data, err := s.Read(offset, len(payload))
		require.NoError(t, err)
		require.Equal(t, payload, data)

		head, err := s.Read(0, 8)
		require.NoError(t, err)
		require.Equal(t, make([]byte, 8), head)
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		s := open(t, 4)
		defer s.Close()
		_, err := s.Grow(1)
		require.NoError(t, err)
		err = s.Write(stablefs.PageSize-1, []byte{1, 2})
		require.True(t, errors.Is(err, storage.ErrOutOfBounds))
		_, err = s.Read(stablefs.PageSize, 1)
		require.True(t, errors.Is(err, storage.ErrOutOfBounds))
		data, err := s.Read(stablefs.PageSize, 0)
		require.NoError(t, err)
		require.Empty(t, data)
	})
}

// RunPersistent checks that pages and contents survive a reopen.
func RunPersistent(t *testing.T, reopen Reopener) {
	s := reopen(t)
	_, err := s.Grow(2)
	require.NoError(t, err)
	require.NoError(t, s.Write(stablefs.PageSize+7, []byte("persisted")))
	require.NoError(t, s.Close())

	s = reopen(t)
	defer s.Close()
	require.Equal(t, uint64(2), s.Size())
	data, err := s.Read(stablefs.PageSize+7, 9)
	require.NoError(t, err)
	require.Equal(t, "persisted", string(data))
}
