package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/templatehub/internal/model"
)

type row struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

func (r row) RecordID() uint64 { return r.ID }

func TestApplyUpdateUnknownIDLeavesListUnchanged(t *testing.T) {
	list := []row{{1, "a"}, {2, "b"}, {3, "c"}}
	got := ApplyUpdate(list, row{9, "z"})
	assert.Equal(t, []row{{1, "a"}, {2, "b"}, {3, "c"}}, got)
}

func TestApplyUpdateReplacesInPlace(t *testing.T) {
	list := []row{{1, "a"}, {2, "b"}, {3, "c"}}
	got := ApplyUpdate(list, row{2, "B"})
	assert.Equal(t, []row{{1, "a"}, {2, "B"}, {3, "c"}}, got)
	assert.Equal(t, "b", list[1].Name, "input must not be mutated")
}

func TestApplyInsertIsIdempotent(t *testing.T) {
	list := ApplyInsert([]row{{1, "a"}}, row{2, "b"})
	list = ApplyInsert(list, row{2, "b2"})
	assert.Equal(t, []row{{1, "a"}, {2, "b"}}, list)
}

func TestApplyDelete(t *testing.T) {
	list := []row{{1, "a"}, {2, "b"}, {3, "c"}}
	assert.Equal(t, []row{{1, "a"}, {3, "c"}}, ApplyDelete(list, 2))
	assert.Equal(t, list, ApplyDelete(list, 42))
	assert.Len(t, list, 3)
}

func TestLiveListFollowsTemplateStatus(t *testing.T) {
	live := NewLiveList(func(t *model.Template) bool { return t.Status == model.TemplateStatusApproved })
	live.Reset([]*model.Template{
		{ID: 1, Title: "one", Status: model.TemplateStatusApproved},
		{ID: 2, Title: "two", Status: model.TemplateStatusPending},
	})
	require.Len(t, live.Snapshot(), 1)

	apply := func(typ EventType, tpl *model.Template) {
		t.Helper()
		e, err := NewEvent(TopicTemplates, typ, tpl.ID, tpl)
		require.NoError(t, err)
		require.NoError(t, live.Apply(e))
	}

	apply(Update, &model.Template{ID: 2, Title: "two", Status: model.TemplateStatusApproved})
	apply(Update, &model.Template{ID: 1, Title: "one v2", Status: model.TemplateStatusApproved})
	apply(Insert, &model.Template{ID: 3, Title: "three", Status: model.TemplateStatusPending})

	snap := live.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "one v2", snap[0].Title)
	assert.Equal(t, uint64(2), snap[1].ID)

	apply(Update, &model.Template{ID: 1, Title: "one v2", Status: model.TemplateStatusRejected})
	require.NoError(t, live.Apply(Event{Topic: TopicTemplates, Type: Delete, ID: 2}))
	assert.Empty(t, live.Snapshot())
}

func TestLiveListRejectsMalformedRecord(t *testing.T) {
	live := NewLiveList[row](nil)
	err := live.Apply(Event{Topic: "rows", Type: Insert, Record: []byte(`{"id":"x"}`)})
	assert.Error(t, err)
	assert.Empty(t, live.Snapshot())
}

func TestLiveListLimitDropsOldest(t *testing.T) {
	live := NewLiveList[row](nil)
	live.Limit = 2
	live.Reset([]row{{1, "a"}, {2, "b"}, {3, "c"}})
	assert.Equal(t, []row{{2, "b"}, {3, "c"}}, live.Snapshot())

	for _, r := range []row{{4, "d"}, {5, "e"}} {
		e, err := NewEvent("rows", Insert, r.ID, r)
		require.NoError(t, err)
		require.NoError(t, live.Apply(e))
	}
	assert.Equal(t, []row{{4, "d"}, {5, "e"}}, live.Snapshot())

	e, err := NewEvent("rows", Update, 9, row{9, "z"})
	require.NoError(t, err)
	require.NoError(t, live.Apply(e))
	assert.Equal(t, []row{{5, "e"}, {9, "z"}}, live.Snapshot())
}
