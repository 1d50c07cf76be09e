package application_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/ark-network/noted/internal/core/application"
	"github.com/ark-network/noted/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	t.Run("exact cover preferred", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, alice, 0, "n1", "n5")
		f.create(t, alice, 1, "n2", "n3")
		f.create(t, alice, 4, "n6")
		f.create(t, alice, 10, "n4")

		selection, err := f.selector.Select(ctx, usd, alice, 5, application.SelectOptions{
			MaxNotes: 2,
		})
		require.NoError(t, err)
		require.Equal(t, []string{"n6", "n2"}, selection.NoteHashes)
		require.Equal(t, uint64(5), selection.Total)
		require.Zero(t, selection.Remainder)
	})

	t.Run("fewer notes before smaller remainder", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, alice, 3, "a")
		f.create(t, alice, 4, "b")
		f.create(t, alice, 10, "n4")

		selection, err := f.selector.Select(ctx, usd, alice, 5, application.SelectOptions{
			MaxNotes: 2,
		})
		require.NoError(t, err)
		require.Equal(t, []string{"n4"}, selection.NoteHashes)
		require.Equal(t, uint64(10), selection.Total)
		require.Equal(t, uint64(5), selection.Remainder)
	})

	t.Run("smallest remainder", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, alice, 3, "a")
		f.create(t, alice, 4, "b")
		f.create(t, alice, 6, "c")

		selection, err := f.selector.Select(ctx, usd, alice, 8, application.SelectOptions{
			MaxNotes: 3,
		})
		require.NoError(t, err)
		require.Equal(t, []string{"c", "a"}, selection.NoteHashes)
		require.Equal(t, uint64(1), selection.Remainder)
	})

	t.Run("oldest note of a bucket first", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, alice, 5, "old", "new")

		selection, err := f.selector.Select(ctx, usd, alice, 5, application.SelectOptions{})
		require.NoError(t, err)
		require.Equal(t, []string{"old"}, selection.NoteHashes)
	})

	t.Run("tie-break", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, alice, 1, "one")
		f.create(t, alice, 2, "two")
		f.create(t, alice, 3, "three")
		f.create(t, alice, 4, "four")

		high, err := f.selector.Select(ctx, usd, alice, 5, application.SelectOptions{
			MaxNotes: 2, TieBreak: application.TieBreakHigh,
		})
		require.NoError(t, err)
		require.Equal(t, []string{"four", "one"}, high.NoteHashes)

		low, err := f.selector.Select(ctx, usd, alice, 5, application.SelectOptions{
			MaxNotes: 2, TieBreak: application.TieBreakLow,
		})
		require.NoError(t, err)
		require.Equal(t, []string{"one", "four"}, low.NoteHashes)
	})

	t.Run("zero target", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, alice, 5, "a")

		selection, err := f.selector.Select(ctx, usd, alice, 0, application.SelectOptions{})
		require.NoError(t, err)
		require.Empty(t, selection.NoteHashes)
		require.Zero(t, selection.Total)
	})

	t.Run("destroyed notes are skipped", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, alice, 5, "a")
		f.create(t, alice, 2, "b", "c")
		f.destroy(t, "a")

		selection, err := f.selector.Select(ctx, usd, alice, 4, application.SelectOptions{})
		require.NoError(t, err)
		require.Equal(t, []string{"b", "c"}, selection.NoteHashes)

		balance, err := f.selector.Balance(ctx, usd, alice)
		require.NoError(t, err)
		require.Equal(t, uint64(4), balance)
	})

	t.Run("zero value notes are never picked", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, alice, 0, "z1", "z2")
		f.create(t, alice, 3, "a")

		selection, err := f.selector.Select(ctx, usd, alice, 3, application.SelectOptions{
			MaxNotes: 3,
		})
		require.NoError(t, err)
		require.Equal(t, []string{"a"}, selection.NoteHashes)
	})

	t.Run("owners are isolated", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, alice, 5, "a")
		f.create(t, bob, 50, "b")

		_, err := f.selector.Select(ctx, usd, alice, 10, application.SelectOptions{})
		require.ErrorIs(t, err, domain.ErrInsufficientFunds)

		selection, err := f.selector.Select(ctx, usd, bob, 10, application.SelectOptions{})
		require.NoError(t, err)
		require.Equal(t, []string{"b"}, selection.NoteHashes)
	})
}

func TestSelectErrors(t *testing.T) {
	f := newFixture(t)
	f.create(t, alice, 1, "a", "b", "c", "d", "e")
	f.create(t, alice, 2, "f")

	t.Run("insufficient funds", func(t *testing.T) {
		selection, err := f.selector.Select(ctx, usd, alice, 8, application.SelectOptions{})
		require.ErrorIs(t, err, domain.ErrInsufficientFunds)
		require.Nil(t, selection)

		var insufficient domain.InsufficientFundsError
		require.ErrorAs(t, err, &insufficient)
		require.Equal(t, uint64(7), insufficient.Available)
		require.Equal(t, uint64(8), insufficient.Target)
	})

	t.Run("too many notes required", func(t *testing.T) {
		selection, err := f.selector.Select(ctx, usd, alice, 6, application.SelectOptions{
			MaxNotes: 3,
		})
		require.ErrorIs(t, err, domain.ErrTooManyNotesRequired)
		require.Nil(t, selection)

		selection, err = f.selector.Select(ctx, usd, alice, 6, application.SelectOptions{
			MaxNotes: 5,
		})
		require.NoError(t, err)
		require.Equal(t, uint64(6), selection.Total)
		require.Len(t, selection.NoteHashes, 5)
	})

	t.Run("unknown owner", func(t *testing.T) {
		_, err := f.selector.Select(ctx, usd, "carol", 1, application.SelectOptions{})
		require.ErrorIs(t, err, domain.ErrUnknownOwner)
	})
}

func TestSelectGreedyFallback(t *testing.T) {
	f := newFixture(t)
	f.create(t, alice, 7, "a")
	f.create(t, alice, 5, "b")
	f.create(t, alice, 3, "c")

	selection, err := f.selector.Select(ctx, usd, alice, 9, application.SelectOptions{
		MaxNotes: 3, SearchBudget: 1,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, selection.NoteHashes)
	require.Equal(t, uint64(10), selection.Total)
	require.Equal(t, uint64(1), selection.Remainder)

	_, err = f.selector.Select(ctx, usd, alice, 15, application.SelectOptions{
		MaxNotes: 2, SearchBudget: 1,
	})
	require.ErrorIs(t, err, domain.ErrTooManyNotesRequired)
}

func TestSelectProperties(t *testing.T) {
	f := newFixture(t)
	rnd := rand.New(rand.NewSource(42))

	alive := make(map[string]uint64)
	total := uint64(0)
	for i := 0; i < 40; i++ {
		hash := fmt.Sprintf("note-%02d", i)
		value := uint64(rnd.Intn(20))
		f.create(t, alice, value, hash)
		alive[hash] = value
		total += value
	}
	for i := 0; i < 40; i += 3 {
		hash := fmt.Sprintf("note-%02d", i)
		f.destroy(t, hash)
		total -= alive[hash]
		delete(alive, hash)
	}

	for target := uint64(1); target <= total+1; target += 7 {
		selection, err := f.selector.Select(ctx, usd, alice, target, application.SelectOptions{
			MaxNotes: 4, SearchBudget: 5000,
		})
		if target > total {
			require.ErrorIs(t, err, domain.ErrInsufficientFunds)
			continue
		}
		if err != nil {
			require.ErrorIs(t, err, domain.ErrTooManyNotesRequired)
			continue
		}

		require.GreaterOrEqual(t, selection.Total, target)
		require.LessOrEqual(t, len(selection.NoteHashes), 4)
		require.Equal(t, selection.Total-target, selection.Remainder)

		seen := make(map[string]bool)
		sum := uint64(0)
		for _, hash := range selection.NoteHashes {
			value, ok := alive[hash]
			require.True(t, ok, "selected hash %s is not spendable", hash)
			require.False(t, seen[hash], "hash %s selected twice", hash)
			seen[hash] = true
			sum += value
		}
		require.Equal(t, selection.Total, sum)
	}
}
