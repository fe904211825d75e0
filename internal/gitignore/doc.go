// Package gitignore implements gitignore pattern matching: wildcards
// (*, ?, **), rooted patterns (/build), negation (!keep.log),
// directory-only patterns (build/), and per-directory scoping for
// nested .gitignore files. A Ruleset is safe for concurrent use.
//
//	rs := gitignore.NewRuleset()
//	rs.AddPattern("*.log")
//	rs.AddPattern("!important.log")
//	rs.AddPattern("/build/")
//
//	if rs.Ignored("error.log", false) {
//	    // excluded
//	}
//
// Rules loaded from a nested .gitignore are scoped to their directory:
//
//	rs.AddFromFile("/repo/.gitignore", "")
//	rs.AddFromFile("/repo/src/.gitignore", "src")
package gitignore
