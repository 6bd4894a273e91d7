package uri

// Normalize removes trailing slashes, as all request paths are also trimmed, resulting
// in consensus between these two. An empty path is the root.
func Normalize(path string) string {
	if len(path) == 0 {
		return "/"
	}

	for i := len(path) - 1; i > 0; i-- {
		if path[i] != '/' {
			return path[:i+1]
		}
	}

	return path[:1]
}
