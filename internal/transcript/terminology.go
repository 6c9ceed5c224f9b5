package transcript

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// latinTerms maps lowercase spoken forms to canonical technical spellings.
// Matched case-insensitively on ASCII word boundaries.
var latinTerms = map[string]string{
	"api":          "API",
	"apis":         "APIs",
	"chatgpt":      "ChatGPT",
	"cli":          "CLI",
	"cpu":          "CPU",
	"css":          "CSS",
	"devops":       "DevOps",
	"docker":       "Docker",
	"github":       "GitHub",
	"gitlab":       "GitLab",
	"golang":       "Go",
	"gpu":          "GPU",
	"graphql":      "GraphQL",
	"grpc":         "gRPC",
	"html":         "HTML",
	"http":         "HTTP",
	"https":        "HTTPS",
	"hyprland":     "Hyprland",
	"ios":          "iOS",
	"ipad":         "iPad",
	"iphone":       "iPhone",
	"javascript":   "JavaScript",
	"json":         "JSON",
	"kubernetes":   "Kubernetes",
	"linux":        "Linux",
	"llm":          "LLM",
	"macos":        "macOS",
	"mongodb":      "MongoDB",
	"mysql":        "MySQL",
	"next js":      "Next.js",
	"nextjs":       "Next.js",
	"node js":      "Node.js",
	"nodejs":       "Node.js",
	"oauth":        "OAuth",
	"openai":       "OpenAI",
	"postgresql":   "PostgreSQL",
	"python":       "Python",
	"react js":     "React.js",
	"reactjs":      "React.js",
	"redis":        "Redis",
	"sdk":          "SDK",
	"sql":          "SQL",
	"typescript":   "TypeScript",
	"url":          "URL",
	"vs code":      "VS Code",
	"vscode":       "VS Code",
	"vue js":       "Vue.js",
	"vuejs":        "Vue.js",
	"wayland":      "Wayland",
	"webassembly":  "WebAssembly",
	"yaml":         "YAML",
}

// phraseTerms are exact substring replacements for transliterated terms that
// show up in CJK transcripts.
var phraseTerms = map[string]string{
	"派森":      "Python",
	"加瓦":      "Java",
	"杰森":      "JSON",
	"吉特哈布":    "GitHub",
	"瑞艾克特":    "React",
	"库伯内特斯":   "Kubernetes",
	"泰普斯克瑞普特": "TypeScript",
	"爪哇脚本":    "JavaScript",
	"欧喷艾":     "OpenAI",
	"恰特GPT":   "ChatGPT",
}

// Terminology applies both correction dictionaries in one deterministic pass each.
type Terminology struct {
	words   map[string]string
	pattern *regexp.Regexp
	phrases *strings.Replacer
}

// NewTerminology builds the built-in dictionaries merged with extra entries.
// Extra keys made only of ASCII join the word dictionary; anything else is
// treated as an exact phrase.
func NewTerminology(extra map[string]string) *Terminology {
	fold := cases.Fold()

	words := make(map[string]string, len(latinTerms)+len(extra))
	for spoken, canonical := range latinTerms {
		words[fold.String(spoken)] = canonical
	}
	phrases := make(map[string]string, len(phraseTerms)+len(extra))
	for spoken, canonical := range phraseTerms {
		phrases[spoken] = canonical
	}

	for spoken, canonical := range extra {
		spoken = strings.TrimSpace(spoken)
		if spoken == "" || strings.TrimSpace(canonical) == "" {
			continue
		}
		if isASCII(spoken) {
			words[fold.String(spoken)] = canonical
			continue
		}
		phrases[spoken] = canonical
	}

	t := &Terminology{words: words}

	if len(words) > 0 {
		keys := sortedLongestFirst(words)
		alts := make([]string, len(keys))
		for i, key := range keys {
			alts[i] = bounded(key)
		}
		t.pattern = regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
	}

	if len(phrases) > 0 {
		keys := sortedLongestFirst(phrases)
		pairs := make([]string, 0, len(keys)*2)
		for _, key := range keys {
			pairs = append(pairs, key, phrases[key])
		}
		t.phrases = strings.NewReplacer(pairs...)
	}

	return t
}

// Apply replaces every non-overlapping dictionary match in text.
func (t *Terminology) Apply(text string) string {
	if t == nil || text == "" {
		return text
	}

	if t.pattern != nil {
		fold := cases.Fold()
		text = t.pattern.ReplaceAllStringFunc(text, func(match string) string {
			if canonical, ok := t.words[fold.String(match)]; ok {
				return canonical
			}
			return match
		})
	}
	if t.phrases != nil {
		text = t.phrases.Replace(text)
	}
	return text
}

// sortedLongestFirst orders keys so longer entries win at the same position and
// ties break lexically, independent of map iteration order.
func sortedLongestFirst(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		li, lj := len(keys[i]), len(keys[j])
		if li != lj {
			return li > lj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// bounded quotes key and anchors each end that is a word character to a word
// boundary, so "c++" and ".net" still match while "cat" skips "concat".
func bounded(key string) string {
	alt := regexp.QuoteMeta(key)
	if isWordByte(key[0]) {
		alt = `\b` + alt
	}
	if isWordByte(key[len(key)-1]) {
		alt += `\b`
	}
	return alt
}

func isWordByte(b byte) bool {
	return b == '_' || '0' <= b && b <= '9' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
