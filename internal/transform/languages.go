package transform

import "strings"

// PlainText is the language Notion uses for code without highlighting.
const PlainText = "plain text"

// notionLanguages is the set of code block languages Notion accepts.
var notionLanguages = map[string]bool{
	"abap": true, "arduino": true, "bash": true, "basic": true, "c": true,
	"clojure": true, "coffeescript": true, "c++": true, "c#": true, "css": true,
	"dart": true, "diff": true, "docker": true, "elixir": true, "elm": true,
	"erlang": true, "flow": true, "fortran": true, "f#": true, "gherkin": true,
	"glsl": true, "go": true, "graphql": true, "groovy": true, "haskell": true,
	"html": true, "java": true, "javascript": true, "json": true, "julia": true,
	"kotlin": true, "latex": true, "less": true, "lisp": true, "livescript": true,
	"lua": true, "makefile": true, "markdown": true, "markup": true, "matlab": true,
	"mermaid": true, "nix": true, "objective-c": true, "ocaml": true, "pascal": true,
	"perl": true, "php": true, "plain text": true, "powershell": true, "prolog": true,
	"protobuf": true, "python": true, "r": true, "reason": true, "ruby": true,
	"rust": true, "sass": true, "scala": true, "scheme": true, "scss": true,
	"shell": true, "sql": true, "swift": true, "typescript": true, "vb.net": true,
	"verilog": true, "vhdl": true, "visual basic": true, "webassembly": true,
	"xml": true, "yaml": true,
}

// languageAliases maps common fence info strings to Notion language names.
var languageAliases = map[string]string{
	"js":         "javascript",
	"jsx":        "javascript",
	"mjs":        "javascript",
	"node":       "javascript",
	"ts":         "typescript",
	"tsx":        "typescript",
	"sh":         "shell",
	"zsh":        "shell",
	"console":    "shell",
	"yml":        "yaml",
	"golang":     "go",
	"py":         "python",
	"python3":    "python",
	"rb":         "ruby",
	"rs":         "rust",
	"cpp":        "c++",
	"cc":         "c++",
	"hpp":        "c++",
	"cs":         "c#",
	"csharp":     "c#",
	"fsharp":     "f#",
	"dockerfile": "docker",
	"md":         "markdown",
	"kt":         "kotlin",
	"ps1":        "powershell",
	"pwsh":       "powershell",
	"proto":      "protobuf",
	"objc":       "objective-c",
	"make":       "makefile",
	"mk":         "makefile",
	"tex":        "latex",
	"hs":         "haskell",
	"ex":         "elixir",
	"exs":        "elixir",
	"erl":        "erlang",
	"clj":        "clojure",
	"coffee":     "coffeescript",
	"gql":        "graphql",
	"htm":        "html",
	"svg":        "xml",
	"wasm":       "webassembly",
	"vb":         "visual basic",
	"text":       PlainText,
	"txt":        PlainText,
	"plaintext":  PlainText,
	"plain":      PlainText,
}

// NormalizeLanguage maps a fenced code block info string to a language
// Notion accepts. Unknown languages become PlainText.
func NormalizeLanguage(info string) string {
	lang := strings.ToLower(strings.TrimSpace(info))
	if i := strings.IndexAny(lang, " \t{"); i >= 0 {
		lang = lang[:i]
	}
	if lang == "" {
		return PlainText
	}
	if alias, ok := languageAliases[lang]; ok {
		return alias
	}
	if notionLanguages[lang] {
		return lang
	}
	return PlainText
}
