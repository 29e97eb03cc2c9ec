package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snpfreq-service/service/models"
	"snpfreq-service/testutil"
)

// clock 可手动推进的测试时钟
type clock struct{ t time.Time }

func (c *clock) now() time.Time                { return c.t }
func (c *clock) advance(d time.Duration)       { c.t = c.t.Add(d) }
func (c *clock) score(d time.Duration) float64 { return toScore(c.t.Add(d)) }

func setupTracker(t *testing.T) (*Tracker, *testutil.TestRedis, *clock) {
	t.Helper()
	tr := testutil.NewTestRedis(t)
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	tracker := NewTracker(tr.Client, 0, 0)
	tracker.now = c.now
	return tracker, tr, c
}

func TestRecent_EmptyIsNotError(t *testing.T) {
	tracker, _, _ := setupTracker(t)

	ids, err := tracker.Recent(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestRecord_OldestFirstWithDuplicates(t *testing.T) {
	tracker, tr, c := setupTracker(t)
	ctx := context.Background()

	for _, id := range []models.VariantID{"rs1801133", "rs7412", "rs1801133"} {
		require.NoError(t, tracker.Record(ctx, "42", id))
		c.advance(time.Minute)
	}

	ids, err := tracker.Recent(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []models.VariantID{"rs1801133", "rs7412", "rs1801133"}, ids)
	assert.Equal(t, DefaultRetention, tr.Server.TTL(Key("42")))
}

func TestRecent_WindowFilter(t *testing.T) {
	tracker, _, c := setupTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.Record(ctx, "42", "rs1"))
	c.advance(2 * time.Hour)
	require.NoError(t, tracker.Record(ctx, "42", "rs2"))
	c.advance(23 * time.Hour)

	ids, err := tracker.Recent(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []models.VariantID{"rs2"}, ids, "超过24小时的条目应被过滤")

	entries, err := tracker.Entries(ctx, "42")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "42", entries[0].UserID)
	assert.Equal(t, c.t.Add(-23*time.Hour), entries[0].Timestamp)
}

func TestRecord_PrunesEntriesOlderThanRetention(t *testing.T) {
	tracker, tr, c := setupTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.Record(ctx, "42", "rs1"))
	c.advance(30 * time.Hour)
	require.NoError(t, tracker.Record(ctx, "42", "rs2"))
	c.advance(19 * time.Hour)
	require.NoError(t, tracker.Record(ctx, "42", "rs3"))

	members, err := tr.Server.ZMembers(Key("42"))
	require.NoError(t, err)
	require.Len(t, members, 2, "超过2天的条目应从存储中删除")
	assert.Equal(t, models.VariantID("rs2"), memberVariant(members[0]))
	assert.Equal(t, models.VariantID("rs3"), memberVariant(members[1]))
}

func TestRecord_StoreError(t *testing.T) {
	tracker, tr, _ := setupTracker(t)
	tr.Server.Close()

	assert.Error(t, tracker.Record(context.Background(), "42", "rs1"))
	_, err := tracker.Recent(context.Background(), "42")
	assert.Error(t, err)
}

func TestRecord_SameTimestampKeepsInsertionOrder(t *testing.T) {
	tracker, _, _ := setupTracker(t)
	ctx := context.Background()

	// 时钟不推进，三条记录 score 相同
	want := []models.VariantID{"rs7412", "rs1801133", "rs429358"}
	for _, id := range want {
		require.NoError(t, tracker.Record(ctx, "42", id))
	}

	ids, err := tracker.Recent(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, want, ids)
}

func TestMemberVariant_Formats(t *testing.T) {
	member, err := newMember("rs1695")
	require.NoError(t, err)

	assert.Equal(t, models.VariantID("rs1695"), memberVariant(member))
	assert.Equal(t, models.VariantID("rs7412"), memberVariant("rs7412"))
	assert.Equal(t, models.VariantID("rs7412"), memberVariant("rs7412|6f1c2a3e-0000-4000-8000-000000000000"))
}

func TestRecent_BareMembers(t *testing.T) {
	tracker, tr, c := setupTracker(t)

	_, err := tr.Server.ZAdd(Key("7"), c.score(-time.Hour), "rs7412")
	require.NoError(t, err)

	ids, err := tracker.Recent(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, []models.VariantID{"rs7412"}, ids)
}

func TestMigrateLegacy_ListFormat(t *testing.T) {
	tracker, tr, c := setupTracker(t)
	ctx := context.Background()
	key := Key("99")

	items := []string{
		fmt.Sprintf(`{"rsid":"RS429358","ts":%f}`, c.score(-3*time.Hour)),
		fmt.Sprintf(`{"rsid":"rs1695","ts":%f}`, c.score(-time.Hour)),
		`garbage`,
		fmt.Sprintf(`{"rsid":"not-an-id","ts":%f}`, c.score(-time.Hour)),
		fmt.Sprintf(`{"rsid":"rs7903146","ts":%f}`, c.score(-30*time.Hour)),
		fmt.Sprintf(`{"rsid":"rs1","ts":%f}`, c.score(-72*time.Hour)),
		fmt.Sprintf(`{"rsid":"rs7412","ts":%f}`, c.score(-time.Hour)),
	}
	_, err := tr.Server.Push(key, items...)
	require.NoError(t, err)

	ids, err := tracker.Recent(ctx, "99")
	require.NoError(t, err)
	assert.Equal(t, []models.VariantID{"rs429358", "rs1695", "rs7412"}, ids, "同一时间戳保持LIST中的先后")

	kind, err := tr.Client.Type(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "zset", kind)

	members, err := tr.Server.ZMembers(key)
	require.NoError(t, err)
	assert.Len(t, members, 4, "24小时窗口外但2天内的条目仍然保留")

	// 迁移后继续写入
	require.NoError(t, tracker.Record(ctx, "99", "rs1801133"))
	ids, err = tracker.Recent(ctx, "99")
	require.NoError(t, err)
	assert.Equal(t, []models.VariantID{"rs429358", "rs1695", "rs7412", "rs1801133"}, ids)
}

func TestMigrateLegacy_AllInvalidDeletesKey(t *testing.T) {
	tracker, tr, _ := setupTracker(t)
	_, err := tr.Server.Push(Key("5"), "bad", `{"rsid":"rs1"}`)
	require.NoError(t, err)

	ids, err := tracker.Recent(context.Background(), "5")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.False(t, tr.Server.Exists(Key("5")))
}
