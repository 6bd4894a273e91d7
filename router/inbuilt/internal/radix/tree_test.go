package radix

import (
	"testing"

	"github.com/indigo-web/tandem/kv"
	"github.com/stretchr/testify/require"
)

func BenchmarkTreeMatch(b *testing.B) {
	tree := New[int]()
	_ = tree.Insert(MustParse("/hello/world"), 1)
	_ = tree.Insert(MustParse("/hello/whopper"), 2)
	_ = tree.Insert(MustParse("/henry/world"), 3)
	_ = tree.Insert(MustParse("/hello/world/somewhere"), 4)
	_ = tree.Insert(MustParse("/user/{id}/posts"), 5)
	wildcards := kv.New()
	b.ResetTimer()

	b.Run("static", func(b *testing.B) {
		for range b.N {
			_, _ = tree.Lookup("/hello/world/somewhere", nil)
		}
	})

	b.Run("dynamic", func(b *testing.B) {
		for range b.N {
			_, _ = tree.Lookup("/user/42/posts", wildcards.Clear())
		}
	})
}

func insert(t *testing.T, tree *Node[int], templates ...string) {
	for i, template := range templates {
		require.NoError(t, tree.Insert(MustParse(template), i+1))
	}
}

func TestTree(t *testing.T) {
	t.Run("static", func(t *testing.T) {
		tree := New[int]()
		keys := []string{"/", "/hello", "/hell", "/henry", "/aboba", "/hello/world"}
		insert(t, tree, keys...)

		for i, key := range keys {
			test(t, tree, key, i+1, "", "")
		}

		_, found := tree.Lookup("/he", nil)
		require.False(t, found)
		_, found = tree.Lookup("/hello/", nil)
		require.False(t, found)
	})

	t.Run("basic dynamic at the end", func(t *testing.T) {
		tree := New[int]()
		insert(t, tree, "/user/{id}")

		_, found := tree.Lookup("/user", nil)
		require.False(t, found)
		_, found = tree.Lookup("/user/", nil)
		require.False(t, found)
		test(t, tree, "/user/wow", 1, "id", "wow")
		test(t, tree, "/user/wow/", 1, "id", "wow")
	})

	t.Run("dynamic in the middle", func(t *testing.T) {
		tree := New[int]()
		insert(t, tree, "/user/{id}", "/user/{id}/name", "/user/{id}/naked")

		for _, path := range []string{"/user/", "/user/42/na", "/user//name", "/user/42/name/x"} {
			_, found := tree.Lookup(path, kv.New())
			require.False(t, found, path)
		}

		test(t, tree, "/user/42", 1, "id", "42")
		test(t, tree, "/user/42/name", 2, "id", "42")
		test(t, tree, "/user/42/naked", 3, "id", "42")
	})

	t.Run("consecutive wildcards", func(t *testing.T) {
		tree := New[int]()
		insert(t, tree, "/{owner}/{repo}", "/{owner}/{repo}/issues/{number}")

		wildcards := kv.New()
		value, found := tree.Lookup("/indigo-web/tandem/issues/7", wildcards)
		require.True(t, found)
		require.Equal(t, 2, value)
		require.Equal(t, "indigo-web", wildcards.Value("owner"))
		require.Equal(t, "tandem", wildcards.Value("repo"))
		require.Equal(t, "7", wildcards.Value("number"))

		test(t, tree, "/indigo-web/tandem", 1, "repo", "tandem")
	})

	t.Run("overriding static", func(t *testing.T) {
		tree := New[int]()
		insert(t, tree, "/hello/world", "/hello/pavlo", "/hello/{name}", "/hello/{name}/hi", "/hello/pavlo/hi")

		test(t, tree, "/hello/world", 1, "", "")
		test(t, tree, "/hello/pavlo", 2, "", "")
		test(t, tree, "/hello/pavlo/hi", 5, "", "")
		test(t, tree, "/hello/henry", 3, "name", "henry")
		test(t, tree, "/hello/jimmy/hi", 4, "name", "jimmy")
		// the static prefix matches, but the rest doesn't, so the wildcard is tried
		test(t, tree, "/hello/worldwide", 3, "name", "worldwide")
		test(t, tree, "/hello/world/hi", 4, "name", "world")
	})

	t.Run("mismatching wildcards", func(t *testing.T) {
		tree := New[int]()
		insert(t, tree, "/user/{id}")
		require.ErrorIs(t, tree.Insert(MustParse("/user/{name}/posts"), 2), ErrMismatchingWildcards)
	})
}

func test(t *testing.T, tree *Node[int], path string, value int, wKey, wVal string) {
	w := kv.New()
	val, found := tree.Lookup(path, w)
	require.True(t, found, path)
	require.Equal(t, value, val)
	require.Equal(t, wVal, w.Value(wKey))
}
