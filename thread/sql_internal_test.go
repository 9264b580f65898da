package thread

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenCountExprPerDialect(t *testing.T) {
	require.Contains(t, tokenCountExpr("sqlite"), "json_extract(steps.generation, '$.tokenCount')")
	require.Contains(t, tokenCountExpr("mysql"), "json_extract(steps.generation, '$.tokenCount')")

	pg := tokenCountExpr("postgres")
	require.Contains(t, pg, "(steps.generation ->> 'tokenCount')::numeric")
	require.NotContains(t, pg, "json_extract")
}

func TestOrderClauseTokenCountPerDialect(t *testing.T) {
	expr, err := orderClause(&OrderBy{Column: OrderByTokenCount, Direction: OrderAsc}, "postgres")
	require.NoError(t, err)
	require.Contains(t, expr, "->> 'tokenCount'")

	expr, err = orderClause(&OrderBy{Column: OrderByTokenCount, Direction: OrderDesc}, "sqlite")
	require.NoError(t, err)
	require.Contains(t, expr, "json_extract")
}
