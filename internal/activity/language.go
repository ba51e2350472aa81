package activity

import (
	"path/filepath"
	"strings"
)

// languageByName maps exact base names, checked before extensions.
var languageByName = map[string]string{
	".gitignore":      "Git Config",
	".gitattributes":  "Git Config",
	".gitmodules":     "Git Config",
	"Dockerfile":      "Docker",
	"Containerfile":   "Docker",
	"Makefile":        "Makefile",
	"GNUmakefile":     "Makefile",
	"Justfile":        "Just",
	"justfile":        "Just",
	".env":            "Env",
	".env.local":      "Env",
	".env.production": "Env",
	"Cargo.toml":      "TOML",
	"Cargo.lock":      "TOML",
	"package.json":    "JSON",
	"tsconfig.json":   "JSON",
	"go.mod":          "Go Module",
	"go.sum":          "Go Module",
}

var languageByExt = map[string]string{
	"rs":         "Rust",
	"py":         "Python",
	"js":         "JavaScript",
	"jsx":        "JavaScript",
	"mjs":        "JavaScript",
	"cjs":        "JavaScript",
	"ts":         "TypeScript",
	"tsx":        "TypeScript",
	"go":         "Go",
	"java":       "Java",
	"kt":         "Kotlin",
	"kts":        "Kotlin",
	"rb":         "Ruby",
	"c":          "C",
	"h":          "C",
	"cpp":        "C++",
	"cc":         "C++",
	"cxx":        "C++",
	"hpp":        "C++",
	"cs":         "C#",
	"swift":      "Swift",
	"php":        "PHP",
	"lua":        "Lua",
	"zig":        "Zig",
	"vue":        "Vue",
	"svelte":     "Svelte",
	"html":       "HTML",
	"htm":        "HTML",
	"css":        "CSS",
	"scss":       "CSS",
	"sass":       "CSS",
	"less":       "CSS",
	"sql":        "SQL",
	"sh":         "Shell",
	"bash":       "Shell",
	"zsh":        "Shell",
	"fish":       "Shell",
	"toml":       "TOML",
	"yaml":       "YAML",
	"yml":        "YAML",
	"json":       "JSON",
	"jsonc":      "JSON",
	"md":         "Markdown",
	"markdown":   "Markdown",
	"xml":        "XML",
	"svg":        "XML",
	"graphql":    "GraphQL",
	"gql":        "GraphQL",
	"proto":      "Protobuf",
	"dockerfile": "Docker",
	"tf":         "Terraform",
	"hcl":        "Terraform",
	"r":          "R",
	"dart":       "Dart",
	"scala":      "Scala",
	"ex":         "Elixir",
	"exs":        "Elixir",
	"hs":         "Haskell",
	"ml":         "OCaml",
	"mli":        "OCaml",
	"nix":        "Nix",
	"vim":        "Vim Script",
	"el":         "Emacs Lisp",
}

// LanguageFor returns the language label for a file path.
// The exact base name is consulted first, then the extension
// (case-insensitive). The second result is false when the language is unknown.
//
// Example:
//
//	lang, ok := activity.LanguageFor("/src/app/main.rs") // "Rust", true
//	_, ok = activity.LanguageFor("/src/app/NOTES")       // "", false
func LanguageFor(entity string) (string, bool) {
	base := filepath.Base(entity)
	if lang, ok := languageByName[base]; ok {
		return lang, true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	if ext == "" {
		return "", false
	}
	lang, ok := languageByExt[ext]
	return lang, ok
}
