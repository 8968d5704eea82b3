package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestReconciler はテスト用のReconcilerを作成する。
// tiktokenのエンコーディングが取得できない環境ではテストをスキップする。
func newTestReconciler(t *testing.T, completion CompletionClient) *Reconciler {
	t.Helper()
	reconciler, err := NewReconciler(completion, 3, nil)
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}
	return reconciler
}

func poolOf(ids ...int64) []*CandidateMovie {
	pool := make([]*CandidateMovie, 0, len(ids))
	for _, id := range ids {
		pool = append(pool, &CandidateMovie{
			ShowID:      id,
			Title:       "Movie",
			Description: "A movie.",
			Genres:      []string{"Drama"},
		})
	}
	return pool
}

func selectedIDs(movies []*CandidateMovie) []int64 {
	ids := make([]int64, 0, len(movies))
	for _, movie := range movies {
		ids = append(ids, movie.ShowID)
	}
	return ids
}

func TestReconcile_OrdersByModelSelection(t *testing.T) {
	// プールに存在しないidは黙って捨て、残りはモデルの指定順になる
	completion := &stubCompletion{responses: []string{"42, 17, 99"}}
	reconciler := newTestReconciler(t, completion)

	selected, err := reconciler.Reconcile(context.Background(), poolOf(17, 42, 101), "something exciting")
	require.NoError(t, err)
	assert.Equal(t, []int64{42, 17}, selectedIDs(selected))
}

func TestReconcile_PoolOrderDoesNotMatter(t *testing.T) {
	// 同じ選択結果なら、プールの並びに関係なく出力は同じ
	first := newTestReconciler(t, &stubCompletion{responses: []string{"42, 17"}})
	resultA, err := first.Reconcile(context.Background(), poolOf(17, 42, 101), "query")
	require.NoError(t, err)

	second := newTestReconciler(t, &stubCompletion{responses: []string{"42, 17"}})
	resultB, err := second.Reconcile(context.Background(), poolOf(101, 42, 17), "query")
	require.NoError(t, err)

	assert.Equal(t, selectedIDs(resultA), selectedIDs(resultB))
}

func TestReconcile_DropsUnselectedCandidates(t *testing.T) {
	completion := &stubCompletion{responses: []string{"5"}}
	reconciler := newTestReconciler(t, completion)

	selected, err := reconciler.Reconcile(context.Background(), poolOf(5, 6, 7, 8), "query")
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, selectedIDs(selected))
}

func TestReconcile_DeduplicatesSelection(t *testing.T) {
	completion := &stubCompletion{responses: []string{"5, 5, 6"}}
	reconciler := newTestReconciler(t, completion)

	selected, err := reconciler.Reconcile(context.Background(), poolOf(5, 6), "query")
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6}, selectedIDs(selected))
}

func TestReconcile_EmptyPool(t *testing.T) {
	completion := &stubCompletion{}
	reconciler := newTestReconciler(t, completion)

	_, err := reconciler.Reconcile(context.Background(), nil, "query")
	require.ErrorIs(t, err, ErrEmptySelection)

	// 空のプールでは補完サービスを呼ばない
	assert.Empty(t, completion.requests)
}

func TestReconcile_BlankResponse(t *testing.T) {
	completion := &stubCompletion{responses: []string{"   \n"}}
	reconciler := newTestReconciler(t, completion)

	_, err := reconciler.Reconcile(context.Background(), poolOf(1, 2), "query")
	require.ErrorIs(t, err, ErrEmptySelection)
}

func TestReconcile_NonIntegerToken(t *testing.T) {
	completion := &stubCompletion{responses: []string{"The Matrix, Inception"}}
	reconciler := newTestReconciler(t, completion)

	_, err := reconciler.Reconcile(context.Background(), poolOf(1, 2), "query")
	require.Error(t, err)

	var malformed *MalformedOutputError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, StageRanking, malformed.Stage)
	assert.Equal(t, "The Matrix, Inception", malformed.RawText)
}

func TestReconcile_AllSelectionsHallucinated(t *testing.T) {
	// 有効なidが一つも残らなければ空選択として扱う
	completion := &stubCompletion{responses: []string{"777, 888"}}
	reconciler := newTestReconciler(t, completion)

	_, err := reconciler.Reconcile(context.Background(), poolOf(1, 2), "query")
	require.ErrorIs(t, err, ErrEmptySelection)
}

func TestReconcile_DuplicatePoolIsRejected(t *testing.T) {
	completion := &stubCompletion{responses: []string{"1"}}
	reconciler := newTestReconciler(t, completion)

	_, err := reconciler.Reconcile(context.Background(), poolOf(1, 1), "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate show id")
}

func TestReconcile_PayloadShape(t *testing.T) {
	// 補完サービスへはid・タイトル・あらすじ・ジャンルのみの縮約表現を渡す
	completion := &stubCompletion{responses: []string{"10"}}
	reconciler := newTestReconciler(t, completion)

	pool := []*CandidateMovie{
		{
			ShowID:      10,
			Title:       "The Lion Saga",
			Description: "A pride of lions.",
			Genres:      []string{"Drama", "Family"},
			VoteCount:   1200,
			WatchURL:    "https://example.com/watch",
		},
	}

	_, err := reconciler.Reconcile(context.Background(), pool, "movies about lions")
	require.NoError(t, err)
	require.Len(t, completion.requests, 1)

	var payload rankingPayload
	userMessage := completion.requests[0].Messages[1]
	require.Equal(t, RoleUser, userMessage.Role)
	require.NoError(t, json.Unmarshal([]byte(userMessage.Content), &payload))

	assert.Equal(t, "movies about lions", payload.UserPrompt)
	require.Len(t, payload.List, 1)
	assert.Equal(t, int64(10), payload.List[0].ID)
	assert.Equal(t, "The Lion Saga", payload.List[0].Title)

	// レビュー数や視聴URLはペイロードに含まれない
	assert.NotContains(t, userMessage.Content, "1200")
	assert.NotContains(t, userMessage.Content, "example.com")
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int64
		wantErr error
	}{
		{name: "カンマ区切り", raw: "42, 17, 99", want: []int64{42, 17, 99}},
		{name: "空白なし", raw: "1,2,3", want: []int64{1, 2, 3}},
		{name: "単一id", raw: "7", want: []int64{7}},
		{name: "末尾のカンマは無視", raw: "1, 2,", want: []int64{1, 2}},
		{name: "空応答", raw: "", wantErr: ErrEmptySelection},
		{name: "空白のみ", raw: " \n\t", wantErr: ErrEmptySelection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSelection(tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
