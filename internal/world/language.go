package world

import (
	"path/filepath"
	"strings"
)

var languageByExt = map[string]string{
	".go":    "go",
	".py":    "python",
	".ipynb": "notebook",
	".js":    "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".jsx":   "javascript",
	".rs":    "rust",
	".java":  "java",
	".rb":    "ruby",
	".c":     "c",
	".cpp":   "cpp",
	".h":     "c",
	".r":     "r",
	".sql":   "sql",
	".sh":    "shell",
	".bash":  "shell",
	".zsh":   "shell",
	".ps1":   "powershell",
	".bat":   "batch",
	".cmd":   "batch",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".xml":   "xml",
	".html":  "html",
	".css":   "css",
	".md":    "markdown",
	".txt":   "text",
	".log":   "text",
	".csv":   "csv",
	".tsv":   "csv",
	".toml":  "toml",
	".ini":   "ini",
	".cfg":   "config",
	".conf":  "config",
	".db":    "sqlite",
	".png":   "image",
	".jpg":   "image",
	".jpeg":  "image",
	".gif":   "image",
	".svg":   "image",
	".pdf":   "pdf",
}

// detectLanguage labels a file by extension, falling back to well-known
// file names. Unknown files get "".
func detectLanguage(ext, path string) string {
	if lang, ok := languageByExt[strings.ToLower(ext)]; ok {
		return lang
	}
	switch filepath.Base(path) {
	case "Dockerfile", "dockerfile":
		return "dockerfile"
	case "Makefile", "makefile", "GNUmakefile":
		return "makefile"
	case "requirements.txt", "setup.py", "pyproject.toml":
		return "python_config"
	case "package.json":
		return "npm"
	}
	return ""
}
