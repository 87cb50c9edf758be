package session

import (
	"fmt"
	"strings"
)

// Language identifies one of the editor languages a candidate can write in.
type Language string

// Supported editor languages. The set is closed; anything else is rejected
// at the boundary.
const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageJava       Language = "java"
	LanguageCPP        Language = "cpp"
)

var defaultTemplates = map[Language]string{
	LanguagePython: `# Write your solution here

def solve():
    pass


if __name__ == "__main__":
    solve()
`,
	LanguageJavaScript: `// Write your solution here

function solve() {
}

solve();
`,
	LanguageJava: `public class Solution {
    public static void main(String[] args) {
        // Write your solution here
    }
}
`,
	LanguageCPP: `#include <iostream>

int main() {
    // Write your solution here
    return 0;
}
`,
}

// ParseLanguage normalizes and validates a language name.
func ParseLanguage(value string) (Language, error) {
	language := Language(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := defaultTemplates[language]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, value)
	}
	return language, nil
}

// DefaultTemplate returns the starter code shown in the editor for a language.
// Every supported language has exactly one template.
func DefaultTemplate(language Language) string {
	return defaultTemplates[language]
}

// Languages lists the supported languages in a stable order.
func Languages() []Language {
	return []Language{LanguagePython, LanguageJavaScript, LanguageJava, LanguageCPP}
}
