package postgres

import (
	"testing"

	"github.com/jinford/llmovies/internal/core/recommend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileFilter(t *testing.T) {
	filter := recommend.FilterPredicate{Clauses: []recommend.FilterClause{
		{
			Field:      recommend.FieldProviders,
			Operator:   recommend.OpContainsAny,
			TextValues: []string{"8", "337"},
		},
		{
			Field:    recommend.FieldVoteCount,
			Operator: recommend.OpGreaterThan,
			IntValue: 500,
		},
		{
			Field:      recommend.FieldGenres,
			Operator:   recommend.OpContainsAny,
			TextValues: []string{"Horror"},
		},
	}}

	// $1はベクトルに割り当て済みなのでオフセット1から始まる
	where, args, err := compileFilter(filter, 1)
	require.NoError(t, err)
	assert.Equal(t, "providers && $2 AND vote_count > $3 AND genres && $4", where)
	require.Len(t, args, 3)
	assert.Equal(t, []string{"8", "337"}, args[0])
	assert.Equal(t, 500, args[1])
	assert.Equal(t, []string{"Horror"}, args[2])
}

func TestCompileFilter_Empty(t *testing.T) {
	where, args, err := compileFilter(recommend.FilterPredicate{}, 1)
	require.NoError(t, err)
	assert.Equal(t, "TRUE", where)
	assert.Empty(t, args)
}

func TestCompileFilter_UnknownField(t *testing.T) {
	filter := recommend.FilterPredicate{Clauses: []recommend.FilterClause{
		{Field: "release_date", Operator: recommend.OpGreaterThan, IntValue: 2000},
	}}

	_, _, err := compileFilter(filter, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestCompileFilter_UnknownOperator(t *testing.T) {
	filter := recommend.FilterPredicate{Clauses: []recommend.FilterClause{
		{Field: recommend.FieldVoteCount, Operator: "LessThan", IntValue: 500},
	}}

	_, _, err := compileFilter(filter, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported filter operator")
}

func TestCompileFilter_ZeroOffset(t *testing.T) {
	filter := recommend.FilterPredicate{Clauses: []recommend.FilterClause{
		{Field: recommend.FieldVoteCount, Operator: recommend.OpGreaterThan, IntValue: 100},
	}}

	where, args, err := compileFilter(filter, 0)
	require.NoError(t, err)
	assert.Equal(t, "vote_count > $1", where)
	assert.Equal(t, []any{100}, args)
}
