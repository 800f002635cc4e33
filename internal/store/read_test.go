package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = s.ReadInput(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runAndWrite(t, s, "run-b", ringInput("b", 2))
	runAndWrite(t, s, "run-a", ringInput("a", 2))
	runAndWrite(t, s, "run-c", ringInput("c", 3))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"run-a", "run-b", "run-c"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})

	limited, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestFindRunByInputHash(t *testing.T) {
	s := createTestStore(t)
	in := ringInput("r", 3)
	rec, _ := runAndWrite(t, s, "run-1", in)

	found, err := s.FindRunByInputHash(context.Background(), rec.InputHash)
	require.NoError(t, err)
	assert.Equal(t, "run-1", found.ID)

	_, err = s.FindRunByInputHash(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
