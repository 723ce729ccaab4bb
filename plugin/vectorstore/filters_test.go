package vectorstore

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/curio/store"
)

func TestWhereBuilder(t *testing.T) {
	t.Run("numbers placeholders positionally", func(t *testing.T) {
		w := &whereBuilder{}
		w.add("a = ?", 1)
		w.add("b = ? AND c = ?", 2, 3)

		require.Equal(t, "a = $1 AND b = $2 AND c = $3", w.where())
		require.Equal(t, []any{1, 2, 3}, w.args)
	})

	t.Run("empty builder matches everything", func(t *testing.T) {
		w := &whereBuilder{}
		require.Equal(t, "TRUE", w.where())
	})
}

func TestBuildSearchWhere(t *testing.T) {
	t.Run("visibility clause is appended for user-generated collections", func(t *testing.T) {
		for _, contentType := range []store.ContentType{store.ContentTypeLesson, store.ContentTypeQuiz, store.ContentTypeProject} {
			w := buildSearchWhere(contentType, nil, true)
			require.Contains(t, w.where(), "NOT i.is_private AND NOT i.is_archived",
				"collection %s must carry the visibility clause", contentType)
		}
	})

	t.Run("curated tool collection skips the visibility clause", func(t *testing.T) {
		w := buildSearchWhere(store.ContentTypeTool, nil, true)
		require.NotContains(t, w.where(), "is_private")
	})

	t.Run("caller filters cannot widen past visibility", func(t *testing.T) {
		createdAfter := time.Now().Add(-time.Hour)
		filters := &SearchFilters{
			OwnerID:        "user-1",
			ExcludeItemIDs: []string{"seen-1"},
			Tags:           []string{"go"},
			CreatedAfter:   &createdAfter,
		}
		w := buildSearchWhere(store.ContentTypeProject, filters, true)
		where := w.where()

		// The visibility clause must come last, ANDed onto every caller filter.
		require.True(t, strings.HasSuffix(where, "NOT i.is_private AND NOT i.is_archived"))
		require.Contains(t, where, "i.owner_id =")
		require.Contains(t, where, "i.tags &&")
		require.Len(t, w.args, 5)
	})

	t.Run("internal callers can disable enforcement explicitly", func(t *testing.T) {
		w := buildSearchWhere(store.ContentTypeProject, nil, false)
		require.NotContains(t, w.where(), "is_private")
	})
}
