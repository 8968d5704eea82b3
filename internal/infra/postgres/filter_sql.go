package postgres

import (
	"fmt"
	"strings"

	"github.com/jinford/llmovies/internal/core/recommend"
)

// filterColumns はフィルタ対象フィールドとカラムの対応。
// 述語はここに列挙されたカラムにしかコンパイルされない。
var filterColumns = map[string]string{
	recommend.FieldProviders: "providers",
	recommend.FieldGenres:    "genres",
	recommend.FieldVoteCount: "vote_count",
}

// compileFilter はフィルタ述語の連言をパラメータ化したWHERE句へコンパイルする。
// ContainsAnyは配列の交差演算子(&&)、GreaterThanは数値比較にそれぞれ対応する。
// argOffsetは既に割り当て済みのプレースホルダ数。
func compileFilter(filter recommend.FilterPredicate, argOffset int) (string, []any, error) {
	if len(filter.Clauses) == 0 {
		return "TRUE", nil, nil
	}

	conditions := make([]string, 0, len(filter.Clauses))
	args := make([]any, 0, len(filter.Clauses))

	for _, clause := range filter.Clauses {
		column, ok := filterColumns[clause.Field]
		if !ok {
			return "", nil, fmt.Errorf("filter references unknown field %q", clause.Field)
		}

		argOffset++
		switch clause.Operator {
		case recommend.OpContainsAny:
			conditions = append(conditions, fmt.Sprintf("%s && $%d", column, argOffset))
			args = append(args, clause.TextValues)
		case recommend.OpGreaterThan:
			conditions = append(conditions, fmt.Sprintf("%s > $%d", column, argOffset))
			args = append(args, clause.IntValue)
		default:
			return "", nil, fmt.Errorf("unsupported filter operator %q", clause.Operator)
		}
	}

	return strings.Join(conditions, " AND "), args, nil
}
