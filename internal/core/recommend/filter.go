package recommend

import "strconv"

// FilterOperator はフィルタ句の比較演算子
type FilterOperator string

const (
	// OpContainsAny は配列プロパティと指定集合の交差が非空であることを要求する
	OpContainsAny FilterOperator = "ContainsAny"
	// OpGreaterThan は数値プロパティが閾値より大きいことを要求する
	OpGreaterThan FilterOperator = "GreaterThan"
)

// フィルタ対象のプロパティ名
const (
	FieldProviders = "providers"
	FieldGenres    = "genres"
	FieldVoteCount = "vote_count"
)

// FilterClause は単一の比較句。演算子に応じてTextValuesかIntValueの一方を使う。
type FilterClause struct {
	Field      string
	Operator   FilterOperator
	TextValues []string // OpContainsAny用
	IntValue   int      // OpGreaterThan用
}

// FilterPredicate は比較句の連言（AND）。ベクトルストアが類似検索と同時に評価する。
type FilterPredicate struct {
	Clauses []FilterClause
}

// BuildFilter は検索条件からフィルタ述語を構築する。
// プロバイダ句とレビュー数句は常に含まれ、ジャンル句はALL以外のときのみ加わる。
// providerIDsが非空であることは呼び出し側の事前条件（Serviceで検証済み）。
// 決定的であり、同じ入力からは常に等しい述語が得られる。
func BuildFilter(constraints SearchConstraints, providerIDs []int, minVoteCount int) FilterPredicate {
	providerValues := make([]string, len(providerIDs))
	for i, id := range providerIDs {
		providerValues[i] = strconv.Itoa(id)
	}

	clauses := []FilterClause{
		{
			Field:      FieldProviders,
			Operator:   OpContainsAny,
			TextValues: providerValues,
		},
		{
			Field:    FieldVoteCount,
			Operator: OpGreaterThan,
			IntValue: minVoteCount,
		},
	}

	if !constraints.Genre.IsAll() {
		clauses = append(clauses, FilterClause{
			Field:      FieldGenres,
			Operator:   OpContainsAny,
			TextValues: constraints.Genre.Values(),
		})
	}

	return FilterPredicate{Clauses: clauses}
}
