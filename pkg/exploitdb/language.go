package exploitdb

import "strings"

// UnknownLanguage is reported for files without a known extension
const UnknownLanguage = "inconnu"

// extensions is checked in order; ".cpp" must come before ".c"
var extensions = []struct {
	suffix   string
	language string
}{
	{".cpp", "c++"},
	{".c", "c"},
	{".sh", "sh"},
	{".rb", "ruby"},
	{".pl", "perl"},
	{".py", "python"},
	{".php", "php"},
	{".txt", "texte"},
	{".jsp", "jsp"},
	{".go", "go"},
	{".js", "javascript"},
}

// LanguageFor returns the language of an exploit from its file path
func LanguageFor(path string) string {
	for _, ext := range extensions {
		if strings.HasSuffix(path, ext.suffix) {
			return ext.language
		}
	}
	return UnknownLanguage
}
