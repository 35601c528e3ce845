package comments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/templatehub/internal/model"
)

func ref(id uint64) *uint64 { return &id }

func ids(cs []*model.Comment) []uint64 {
	out := make([]uint64, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestBuildThread(t *testing.T) {
	flat := []*model.Comment{
		{ID: 1, Content: "root a"},
		{ID: 2, Content: "root b"},
		{ID: 3, ParentID: ref(1), Content: "a.1"},
		{ID: 4, ParentID: ref(3), Content: "a.1.1"},
		{ID: 5, ParentID: ref(1), Content: "a.2"},
		{ID: 6, ParentID: ref(2), Content: "b.1"},
	}

	roots := BuildThread(flat)
	require.Equal(t, []uint64{1, 2}, ids(roots))
	assert.Equal(t, []uint64{3, 5}, ids(roots[0].Replies))
	assert.Equal(t, []uint64{4}, ids(roots[0].Replies[0].Replies))
	assert.Equal(t, []uint64{6}, ids(roots[1].Replies))
	assert.Equal(t, len(flat), Count(roots))
}

func TestBuildThreadChildBeforeParent(t *testing.T) {
	flat := []*model.Comment{
		{ID: 9, ParentID: ref(8)},
		{ID: 8},
	}
	roots := BuildThread(flat)
	require.Equal(t, []uint64{8}, ids(roots))
	assert.Equal(t, []uint64{9}, ids(roots[0].Replies))
}

func TestBuildThreadOrphanBecomesRoot(t *testing.T) {
	flat := []*model.Comment{
		{ID: 1},
		{ID: 2, ParentID: ref(404)},
	}
	roots := BuildThread(flat)
	assert.Equal(t, []uint64{1, 2}, ids(roots))
	assert.Equal(t, 2, Count(roots))
}

func TestBuildThreadDuplicatesAndReruns(t *testing.T) {
	flat := []*model.Comment{
		{ID: 1},
		{ID: 2, ParentID: ref(1)},
		{ID: 2, ParentID: ref(1)},
	}
	roots := BuildThread(flat)
	assert.Equal(t, 2, Count(roots))

	// A second assembly of the same rows must not accumulate replies.
	roots = BuildThread(flat)
	require.Len(t, roots, 1)
	assert.Len(t, roots[0].Replies, 1)
}

func TestBuildThreadEmpty(t *testing.T) {
	roots := BuildThread(nil)
	assert.NotNil(t, roots)
	assert.Empty(t, roots)
}
